package serialport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/canmon/internal/logging"
)

// Defaults matching the gateway firmware UART setup
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = time.Second
)

// Config holds serial connection settings
type Config struct {
	Name        string        // Device path, e.g. /dev/ttyUSB0 or COM3
	BaudRate    int           // 0 = DefaultBaudRate
	ReadTimeout time.Duration // 0 = DefaultReadTimeout
}

// Port is a serial byte source with a read timeout
type Port struct {
	name string
	mu   sync.Mutex
	port serial.Port
}

// opener is swapped in tests
var opener = serial.Open

// Open opens and configures the serial device
func Open(cfg Config) (*Port, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := opener(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", cfg.Name, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Name, err)
	}

	logging.Info("Serial port opened",
		zap.String("port", cfg.Name),
		zap.Int("baud_rate", cfg.BaudRate),
		zap.Duration("read_timeout", cfg.ReadTimeout),
	)

	return &Port{name: cfg.Name, port: p}, nil
}

// Read reads up to len(p) bytes. It returns 0, nil when the read timeout
// expires without data.
func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	port := p.port
	p.mu.Unlock()

	if port == nil {
		return 0, io.ErrClosedPipe
	}
	n, err := port.Read(b)
	if err != nil {
		return n, fmt.Errorf("read from %s: %w", p.name, err)
	}
	return n, nil
}

// Name returns the device path
func (p *Port) Name() string {
	return p.name
}

// Close releases the device. It is safe to call more than once.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	logging.Info("Serial port closed", zap.String("port", p.name))
	return err
}
