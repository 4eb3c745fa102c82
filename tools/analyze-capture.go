//go:build ignore

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/muurk/canmon/internal/protocol"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: analyze-capture <capture-file>")
		fmt.Println("Example: go run tools/analyze-capture.go capture.bin")
		os.Exit(1)
	}

	filename := os.Args[1]
	data, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	var magic [4]byte
	binary.LittleEndian.PutUint32(magic[:], protocol.Magic)

	fmt.Printf("=== Gateway Capture Analyzer ===\n")
	fmt.Printf("File:  %s\n", filename)
	fmt.Printf("Bytes: %d\n\n", len(data))

	var found, good, badCRC, short, stray int
	pos := 0
	for {
		idx := bytes.Index(data[pos:], magic[:])
		if idx < 0 {
			stray += len(data) - pos
			break
		}
		if idx > 0 {
			fmt.Printf("[%06x] %d stray bytes before marker\n", pos, idx)
			hexDump(data[pos:pos+idx], pos)
			stray += idx
		}
		pos += idx
		found++

		h, err := protocol.ParseHeader(data[pos:])
		if err != nil {
			fmt.Printf("[%06x] truncated header: %v\n", pos, err)
			short++
			break
		}

		size := h.PacketSize()
		if pos+size > len(data) {
			fmt.Printf("[%06x] %s: truncated, %d of %d bytes present\n", pos, h, len(data)-pos, size)
			short++
			break
		}

		pkt := data[pos : pos+size]
		trailer := binary.LittleEndian.Uint32(pkt[size-protocol.TrailerSize:])
		computed := protocol.Checksum(pkt[:size-protocol.TrailerSize])

		status := "ok"
		if trailer != computed {
			status = fmt.Sprintf("CRC MISMATCH (trailer 0x%08x, computed 0x%08x)", trailer, computed)
			badCRC++
		} else {
			good++
		}
		fmt.Printf("[%06x] %s: %d bytes, %s\n", pos, h, size, status)

		if trailer != computed {
			// Show the records so the damage can be located
			for i := 0; i < int(h.Count); i++ {
				off := protocol.HeaderSize + i*protocol.RecordSize
				f, err := protocol.DecodeRecord(pkt[off : off+protocol.RecordSize])
				if err != nil {
					continue
				}
				fmt.Printf("         %s\n", protocol.ClassifyFrame(f))
			}
		}

		pos += size
	}

	fmt.Println()
	fmt.Printf("Markers found:   %d\n", found)
	fmt.Printf("Valid packets:   %d\n", good)
	fmt.Printf("Bad checksum:    %d\n", badCRC)
	fmt.Printf("Truncated:       %d\n", short)
	fmt.Printf("Stray bytes:     %d\n", stray)
}

func hexDump(data []byte, base int) {
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Printf("         %06x  % x\n", base+i, data[i:end])
	}
}
