package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"strings"
)

// Packet layout constants
const (
	Magic       uint32 = 0x43414E4F // "CANO"
	Version     uint16 = 1
	HeaderSize         = 8  // Magic + Version + Count
	RecordSize         = 20 // Timestamp + ID + DLC + 8 data + Flags + 2 reserved
	TrailerSize        = 4  // CRC-32
	MaxDataLen         = 8

	// DefaultMaxRecords bounds the record count accepted from a header
	DefaultMaxRecords = 256
)

// Record field offsets
const (
	recTimestamp = 0
	recID        = 4
	recDLC       = 8
	recData      = 9
	recFlags     = 17
)

// Header is the fixed-layout packet header
type Header struct {
	Magic   uint32
	Version uint16
	Count   uint16 // Number of records that follow
}

// ParseHeader decodes a header from the first HeaderSize bytes of data.
// It does not check the magic value.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("header too short: %d bytes (minimum %d)", len(data), HeaderSize)
	}
	return Header{
		Magic:   binary.LittleEndian.Uint32(data[0:4]),
		Version: binary.LittleEndian.Uint16(data[4:6]),
		Count:   binary.LittleEndian.Uint16(data[6:8]),
	}, nil
}

// PacketSize returns the number of bytes a packet with this header occupies
func (h Header) PacketSize() int {
	return HeaderSize + int(h.Count)*RecordSize + TrailerSize
}

func (h Header) String() string {
	return fmt.Sprintf("Header{magic=0x%08x, version=%d, count=%d}", h.Magic, h.Version, h.Count)
}

// Frame is a single CAN message record decoded from a packet
type Frame struct {
	Timestamp uint32 // Device-relative microseconds
	ID        uint32 // Raw identifier (up to 29 bits)
	DLC       uint8  // Declared data length as received
	Data      []byte // min(DLC, 8) payload bytes
	Flags     uint8
}

// Len returns the effective payload length (declared length clamped to 8)
func (f Frame) Len() int {
	if f.DLC > MaxDataLen {
		return MaxDataLen
	}
	return int(f.DLC)
}

// DecodeRecord decodes a single RecordSize-byte message record
func DecodeRecord(rec []byte) (Frame, error) {
	if len(rec) < RecordSize {
		return Frame{}, fmt.Errorf("record too short: %d bytes (want %d)", len(rec), RecordSize)
	}

	f := Frame{
		Timestamp: binary.LittleEndian.Uint32(rec[recTimestamp:]),
		ID:        binary.LittleEndian.Uint32(rec[recID:]),
		DLC:       rec[recDLC],
		Flags:     rec[recFlags],
	}

	// Copy out of the read buffer so the frame owns its payload
	n := f.Len()
	f.Data = make([]byte, n)
	copy(f.Data, rec[recData:recData+n])

	return f, nil
}

// EncodeRecord writes f into rec, which must be at least RecordSize bytes.
// Payload bytes beyond Len() are left zero.
func EncodeRecord(rec []byte, f Frame) error {
	if len(rec) < RecordSize {
		return fmt.Errorf("record buffer too short: %d bytes (want %d)", len(rec), RecordSize)
	}
	if len(f.Data) > MaxDataLen {
		return fmt.Errorf("payload too long: %d bytes (maximum %d)", len(f.Data), MaxDataLen)
	}

	clear(rec[:RecordSize])
	binary.LittleEndian.PutUint32(rec[recTimestamp:], f.Timestamp)
	binary.LittleEndian.PutUint32(rec[recID:], f.ID)
	rec[recDLC] = f.DLC
	copy(rec[recData:recData+MaxDataLen], f.Data)
	rec[recFlags] = f.Flags

	return nil
}

// Checksum computes the trailer value over the header and record region
func Checksum(headerAndRecords []byte) uint32 {
	return crc32.ChecksumIEEE(headerAndRecords)
}

// BuildPacket encodes frames into a complete packet including the CRC trailer
func BuildPacket(version uint16, frames []Frame) ([]byte, error) {
	if len(frames) > 0xFFFF {
		return nil, fmt.Errorf("too many records: %d (maximum %d)", len(frames), 0xFFFF)
	}

	h := Header{Magic: Magic, Version: version, Count: uint16(len(frames))}
	buf := make([]byte, h.PacketSize())

	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Count)

	for i, f := range frames {
		off := HeaderSize + i*RecordSize
		if err := EncodeRecord(buf[off:off+RecordSize], f); err != nil {
			return nil, fmt.Errorf("failed to encode record %d: %w", i, err)
		}
	}

	end := len(buf) - TrailerSize
	binary.LittleEndian.PutUint32(buf[end:], Checksum(buf[:end]))

	return buf, nil
}

// Packet is a fully deframed packet
type Packet struct {
	Header   Header
	Frames   []Frame
	Checksum uint32 // Trailer value as received
}

func (p *Packet) String() string {
	return fmt.Sprintf("Packet{version=%d, frames=%d, checksum=0x%08x}",
		p.Header.Version, len(p.Frames), p.Checksum)
}

// HexData returns the payload as space-separated upper-case hex bytes
func (f Frame) HexData() string {
	parts := make([]string, len(f.Data))
	for i, b := range f.Data {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, " ")
}
