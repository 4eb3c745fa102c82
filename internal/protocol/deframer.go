package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Source is a blocking byte stream with a bounded read timeout.
// Read returns 0, nil when the timeout expires without data.
type Source interface {
	Read(p []byte) (int, error)
}

// DefaultMaxResyncBytes bounds the forward scan for a magic marker
const DefaultMaxResyncBytes = 4096

// Options tunes deframing behaviour. The zero value reads packets
// structurally: no resynchronization and the trailer is not verified.
type Options struct {
	// MaxRecords rejects headers declaring more records (0 = DefaultMaxRecords)
	MaxRecords int

	// Resync scans forward byte-by-byte for the next magic after a bad header
	Resync bool

	// MaxResyncBytes bounds one scan (0 = DefaultMaxResyncBytes)
	MaxResyncBytes int

	// VerifyChecksum rejects packets whose trailer does not match
	VerifyChecksum bool
}

// Deframer extracts packets from a continuous byte stream
type Deframer struct {
	src  Source
	opts Options

	// Bytes read from src but not yet consumed; never more than a header
	pending []byte

	header [HeaderSize]byte
	body   []byte

	// Source error hit during a resync scan, reported by the next ReadPacket
	failed error
}

// NewDeframer creates a deframer reading from src
func NewDeframer(src Source, opts Options) *Deframer {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}
	if opts.MaxResyncBytes <= 0 {
		opts.MaxResyncBytes = DefaultMaxResyncBytes
	}
	return &Deframer{
		src:     src,
		opts:    opts,
		pending: make([]byte, 0, HeaderSize),
	}
}

// Options returns the effective options
func (d *Deframer) Options() Options {
	return d.opts
}

// ReadPacket reads one packet from the source.
//
// A timeout before a full header yields ErrNoData, which callers should treat
// as "poll again". Every other failure discards the packet in flight.
func (d *Deframer) ReadPacket() (*Packet, error) {
	if err := d.failed; err != nil {
		d.failed = nil
		return nil, &DeframeError{
			Kind:    KindTransportFailure,
			Message: "source failed while scanning for magic",
			Want:    HeaderSize,
			Err:     err,
		}
	}

	n, err := d.readFull(d.header[:])
	if n < HeaderSize {
		if err != nil {
			return nil, &DeframeError{
				Kind:    KindTransportFailure,
				Message: "failed to read packet header",
				Got:     n,
				Want:    HeaderSize,
				Err:     err,
			}
		}
		return nil, &DeframeError{
			Kind:    KindNoData,
			Message: "no complete header before timeout",
			Got:     n,
			Want:    HeaderSize,
		}
	}

	h, _ := ParseHeader(d.header[:])
	if h.Magic != Magic {
		derr := &DeframeError{
			Kind:    KindBadMagic,
			Message: fmt.Sprintf("invalid magic 0x%08x (expected 0x%08x)", h.Magic, Magic),
			Header:  h,
			Got:     HeaderSize,
			Want:    HeaderSize,
		}
		if d.opts.Resync {
			skipped, rerr := d.resync()
			derr.Skipped = skipped
			if rerr != nil {
				derr.Err = rerr
				d.failed = rerr
			}
		}
		return nil, derr
	}

	if int(h.Count) > d.opts.MaxRecords {
		return nil, &DeframeError{
			Kind:    KindBadHeader,
			Message: fmt.Sprintf("record count %d exceeds maximum %d", h.Count, d.opts.MaxRecords),
			Header:  h,
		}
	}

	// Records and trailer are read as one block so the total length is
	// known before any record is parsed
	bodyLen := int(h.Count)*RecordSize + TrailerSize
	if cap(d.body) < bodyLen {
		d.body = make([]byte, bodyLen)
	}
	body := d.body[:bodyLen]

	n, err = d.readFull(body)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &DeframeError{
			Kind:    KindTransportFailure,
			Message: "failed to read packet body",
			Header:  h,
			Got:     n,
			Want:    bodyLen,
			Err:     err,
		}
	}
	if n < bodyLen {
		return nil, &DeframeError{
			Kind:    KindTruncatedRecord,
			Message: fmt.Sprintf("body ended at record %d of %d", n/RecordSize, h.Count),
			Header:  h,
			Got:     n,
			Want:    bodyLen,
			Err:     err,
		}
	}

	recordsEnd := int(h.Count) * RecordSize
	pkt := &Packet{
		Header:   h,
		Frames:   make([]Frame, 0, h.Count),
		Checksum: binary.LittleEndian.Uint32(body[recordsEnd:]),
	}

	if d.opts.VerifyChecksum {
		sum := checksumParts(d.header[:], body[:recordsEnd])
		if sum != pkt.Checksum {
			return nil, &DeframeError{
				Kind:    KindBadChecksum,
				Message: fmt.Sprintf("checksum 0x%08x does not match computed 0x%08x", pkt.Checksum, sum),
				Header:  h,
			}
		}
	}

	for i := 0; i < int(h.Count); i++ {
		off := i * RecordSize
		f, err := DecodeRecord(body[off : off+RecordSize])
		if err != nil {
			return nil, &DeframeError{
				Kind:    KindTruncatedRecord,
				Message: fmt.Sprintf("failed to decode record %d", i),
				Header:  h,
				Err:     err,
			}
		}
		pkt.Frames = append(pkt.Frames, f)
	}

	return pkt, nil
}

// readFull fills buf from pending bytes and then the source, stopping early
// on a zero-length (timed out) read.
func (d *Deframer) readFull(buf []byte) (int, error) {
	n := copy(buf, d.pending)
	d.pending = d.pending[:copy(d.pending, d.pending[n:])]

	for n < len(buf) {
		m, err := d.src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
	}
	return n, nil
}

// resync scans forward for the magic marker, starting one byte past the
// rejected header. On success the marker is left pending so the next
// ReadPacket starts on it. Returns the number of bytes discarded.
func (d *Deframer) resync() (int, error) {
	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], Magic)

	// Bytes of the rejected header after its first byte are still candidates
	d.pending = append(d.pending[:0], d.header[1:]...)

	var window [4]byte
	filled := 0
	skipped := 1
	var one [1]byte

	for scanned := 0; scanned < d.opts.MaxResyncBytes; scanned++ {
		var b byte
		if len(d.pending) > 0 {
			b = d.pending[0]
			d.pending = d.pending[:copy(d.pending, d.pending[1:])]
		} else {
			m, err := d.src.Read(one[:])
			if err != nil {
				return skipped + filled, err
			}
			if m == 0 {
				// Keep what we have; the scan resumes on the next bad magic
				d.pending = append(d.pending, window[:filled]...)
				return skipped, nil
			}
			b = one[0]
		}

		if filled == len(window) {
			copy(window[:], window[1:])
			window[3] = b
			skipped++
		} else {
			window[filled] = b
			filled++
		}

		if filled == len(window) && window == magic {
			rest := d.pending
			d.pending = make([]byte, 0, HeaderSize)
			d.pending = append(d.pending, window[:]...)
			d.pending = append(d.pending, rest...)
			return skipped, nil
		}
	}

	// Scan bound reached without a marker; the window is dropped as well
	return skipped + filled, nil
}

func checksumParts(header, records []byte) uint32 {
	return crc32.Update(crc32.ChecksumIEEE(header), crc32.IEEETable, records)
}
