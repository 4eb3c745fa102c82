// Package protocol implements the CANopen monitor wire protocol.
//
// This package handles deframing, validation, construction and classification
// of the packets an embedded CANopen gateway streams to the host over a serial
// link. Each packet carries a batch of CAN bus messages captured on the device.
//
// # Packet Format
//
// All integers are little-endian:
//   - Magic: 4 bytes (0x43414E4F, "CANO")
//   - Protocol version: 2 bytes
//   - Record count N: 2 bytes
//   - Records: N x 20 bytes
//   - Trailer: 4 bytes (CRC-32 IEEE over header and records)
//
// # Record Format
//
// Every record is exactly RecordSize (20) bytes:
//   - Bytes 0-3: Timestamp in microseconds (device clock, may wrap)
//   - Bytes 4-7: CAN identifier (only the low 11 bits are used for addressing)
//   - Byte 8: Declared data length (values above 8 are clamped)
//   - Bytes 9-16: Payload slot (bytes beyond the data length are ignored)
//   - Byte 17: Flags
//   - Bytes 18-19: Reserved
//
// # Usage Example - Deframing
//
//	port, err := serialport.Open(serialport.Config{Name: "/dev/ttyUSB0"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := protocol.NewDeframer(port, protocol.Options{})
//	pkt, err := d.ReadPacket()
//	switch {
//	case errors.Is(err, protocol.ErrNoData):
//	    // nothing yet, poll again
//	case err != nil:
//	    log.Printf("dropped packet: %v", err)
//	default:
//	    for _, f := range pkt.Frames {
//	        cf := protocol.ClassifyFrame(f)
//	        fmt.Println(cf)
//	    }
//	}
//
// # Usage Example - Construction
//
//	data, err := protocol.BuildPacket(protocol.Version, []protocol.Frame{
//	    {ID: 0x081, DLC: 1, Data: []byte{0x01}},
//	})
//
// # Classification
//
// Identifiers are mapped onto the CANopen predefined connection set: NMT,
// SYNC, TIME, EMCY, PDO1-4 in both directions, SDO and heartbeat. The node
// number is the low 7 bits of the identifier except for the three broadcast
// identifiers (0x000, 0x080, 0x100), which map to node 0.
//
// # Error Handling
//
// The deframer distinguishes between:
//   - No data: the link timed out before a header arrived (not an error)
//   - Bad magic: the header marker did not match (stream corruption or desync)
//   - Bad header: the record count exceeds the configured maximum
//   - Truncated record: the body ended before all declared records arrived
//   - Bad checksum: the trailer did not match (only with VerifyChecksum)
//   - Transport failure: the byte source itself failed
//
// All errors are *DeframeError values and match the package sentinels with
// errors.Is.
//
// # Thread Safety
//
// Classification and packet construction are stateless and safe for
// concurrent use. A Deframer owns its byte source and must be driven from a
// single goroutine.
package protocol
