package serialport

import (
	"fmt"
	"sort"

	"go.bug.st/serial"
)

// lister is swapped in tests
var lister = serial.GetPortsList

// List returns the serial devices present on the system, sorted by name
func List() ([]string, error) {
	ports, err := lister()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	sort.Strings(ports)
	return ports, nil
}
