// Canmon monitors a CANopen bus through a serial gateway.
//
// The gateway batches captured CAN frames into checksummed packets and streams
// them over a UART link. canmon deframes the stream, classifies every frame by
// its CANopen function code and node, and keeps running statistics.
//
//   - Frame listing with category and node per line
//   - Periodic statistics reports (message types, node activity, errors)
//   - Optional HTTP live feed, JSON views and Prometheus metrics
//   - Offline replay of captured byte streams
//
// Usage:
//
//	canmon monitor /dev/ttyUSB0
//	canmon replay capture.bin
//	canmon classify 0x181 0x705
//
// See 'canmon --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
