//go:build ignore

package main

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/muurk/canmon/internal/protocol"
)

// Simulated bus: a master on node 1 and three slave drives
var nodes = []uint8{1, 2, 3, 4}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: gen-capture <output-file> [packets] [noise-percent]")
		fmt.Println("Example: go run tools/gen-capture.go capture.bin 500 5")
		os.Exit(1)
	}

	packets := 100
	noise := 0
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			fmt.Printf("Invalid packet count: %s\n", os.Args[2])
			os.Exit(1)
		}
		packets = n
	}
	if len(os.Args) > 3 {
		n, err := strconv.Atoi(os.Args[3])
		if err != nil || n < 0 || n > 100 {
			fmt.Printf("Invalid noise percentage: %s\n", os.Args[3])
			os.Exit(1)
		}
		noise = n
	}

	rng := rand.New(rand.NewSource(1))
	var out []byte
	var ts uint32
	var corrupted, garbage int

	for i := 0; i < packets; i++ {
		count := 1 + rng.Intn(8)
		frames := make([]protocol.Frame, 0, count)
		for j := 0; j < count; j++ {
			ts += uint32(1 + rng.Intn(20))
			frames = append(frames, nextFrame(rng, ts))
		}

		pkt, err := protocol.BuildPacket(protocol.Version, frames)
		if err != nil {
			fmt.Printf("Error building packet %d: %v\n", i, err)
			os.Exit(1)
		}

		if noise > 0 && rng.Intn(100) < noise {
			if rng.Intn(2) == 0 {
				// Line noise ahead of the packet
				junk := make([]byte, 1+rng.Intn(12))
				rng.Read(junk)
				out = append(out, junk...)
				garbage++
			} else {
				// Flip a payload bit so only the trailer catches it
				pkt[protocol.HeaderSize+9] ^= 0x01
				corrupted++
			}
		}
		out = append(out, pkt...)
	}

	if err := os.WriteFile(os.Args[1], out, 0644); err != nil {
		fmt.Printf("Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Synthetic Gateway Capture ===\n")
	fmt.Printf("File:      %s\n", os.Args[1])
	fmt.Printf("Bytes:     %d\n", len(out))
	fmt.Printf("Packets:   %d\n", packets)
	fmt.Printf("Noise:     %d packets preceded by garbage\n", garbage)
	fmt.Printf("Corrupted: %d packets with a bad checksum\n", corrupted)
	fmt.Println()
	fmt.Printf("Replay with: canmon replay %s --resync --verify-checksum\n", os.Args[1])
}

func nextFrame(rng *rand.Rand, ts uint32) protocol.Frame {
	node := uint32(nodes[rng.Intn(len(nodes))])

	switch r := rng.Intn(100); {
	case r < 10:
		return protocol.Frame{Timestamp: ts, ID: 0x080}
	case r < 25:
		return protocol.Frame{Timestamp: ts, ID: 0x700 + node, DLC: 1, Data: []byte{0x05}}
	case r < 55:
		return payloadFrame(rng, ts, 0x180+node, 8)
	case r < 75:
		return payloadFrame(rng, ts, 0x200+node, 4)
	case r < 85:
		return payloadFrame(rng, ts, 0x600+node, 8)
	case r < 95:
		return payloadFrame(rng, ts, 0x580+node, 8)
	case r < 98:
		return payloadFrame(rng, ts, 0x080+node, 8)
	default:
		return protocol.Frame{Timestamp: ts, ID: 0x000, DLC: 2, Data: []byte{0x01, byte(node)}}
	}
}

func payloadFrame(rng *rand.Rand, ts, id uint32, dlc int) protocol.Frame {
	data := make([]byte, dlc)
	rng.Read(data)
	return protocol.Frame{Timestamp: ts, ID: id, DLC: uint8(dlc), Data: data}
}
