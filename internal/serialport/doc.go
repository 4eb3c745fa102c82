// Package serialport supplies byte sources for the packet deframer.
//
// Port wraps a serial device opened with go.bug.st/serial and configured for
// 8N1 framing with a bounded read timeout; a read that times out returns
// zero bytes and no error, which the deframer treats as "no data yet".
// ReaderSource adapts any io.Reader, such as a raw capture dump, to the same
// contract.
package serialport
