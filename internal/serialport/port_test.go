package serialport

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.bug.st/serial"
)

// fakePort implements the methods Port uses; the embedded interface
// satisfies the rest of serial.Port
type fakePort struct {
	serial.Port
	data    *bytes.Reader
	timeout time.Duration
	closed  int
	readErr error
}

func (f *fakePort) Read(p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	n, err := f.data.Read(p)
	if err == io.EOF {
		// Serial reads time out instead of reporting end of input
		return 0, nil
	}
	return n, err
}

func (f *fakePort) SetReadTimeout(d time.Duration) error {
	f.timeout = d
	return nil
}

func (f *fakePort) Close() error {
	f.closed++
	return nil
}

func withOpener(t *testing.T, fn func(string, *serial.Mode) (serial.Port, error)) {
	t.Helper()
	prev := opener
	opener = fn
	t.Cleanup(func() { opener = prev })
}

func TestOpen_Defaults(t *testing.T) {
	fake := &fakePort{data: bytes.NewReader(nil)}
	var gotMode *serial.Mode
	var gotName string
	withOpener(t, func(name string, mode *serial.Mode) (serial.Port, error) {
		gotName, gotMode = name, mode
		return fake, nil
	})

	p, err := Open(Config{Name: "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer p.Close()

	if gotName != "/dev/ttyUSB0" {
		t.Errorf("name = %q, want /dev/ttyUSB0", gotName)
	}
	if gotMode.BaudRate != DefaultBaudRate || gotMode.DataBits != 8 ||
		gotMode.Parity != serial.NoParity || gotMode.StopBits != serial.OneStopBit {
		t.Errorf("mode = %+v, want 115200 8N1", gotMode)
	}
	if fake.timeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v, want %v", fake.timeout, DefaultReadTimeout)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open() without a name should fail")
	}

	withOpener(t, func(string, *serial.Mode) (serial.Port, error) {
		return nil, errors.New("no such device")
	})
	_, err := Open(Config{Name: "/dev/missing"})
	if err == nil || !strings.Contains(err.Error(), "/dev/missing") {
		t.Errorf("Open() error = %v, want it to name the device", err)
	}
}

func TestPort_ReadAndClose(t *testing.T) {
	fake := &fakePort{data: bytes.NewReader([]byte{1, 2, 3})}
	withOpener(t, func(string, *serial.Mode) (serial.Port, error) { return fake, nil })

	p, err := Open(Config{Name: "COM3", BaudRate: 9600, ReadTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	buf := make([]byte, 8)
	n, err := p.Read(buf)
	if err != nil || n != 3 {
		t.Fatalf("Read() = %d, %v, want 3, nil", n, err)
	}
	n, err = p.Read(buf)
	if err != nil || n != 0 {
		t.Errorf("Read() on timeout = %d, %v, want 0, nil", n, err)
	}

	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if fake.closed != 1 {
		t.Errorf("underlying Close called %d times, want 1", fake.closed)
	}
	if _, err := p.Read(buf); err == nil {
		t.Error("Read() after Close() should fail")
	}
}

func TestPort_ReadErrorIsWrapped(t *testing.T) {
	cause := errors.New("device disconnected")
	fake := &fakePort{readErr: cause}
	withOpener(t, func(string, *serial.Mode) (serial.Port, error) { return fake, nil })

	p, err := Open(Config{Name: "/dev/ttyACM0"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := p.Read(make([]byte, 4)); !errors.Is(err, cause) {
		t.Errorf("Read() error = %v, want it to wrap %v", err, cause)
	}
}

func TestReaderSource(t *testing.T) {
	src := NewReaderSource(strings.NewReader("CANO"))
	buf := make([]byte, 8)

	n, err := src.Read(buf)
	if n != 4 || err != nil {
		t.Fatalf("Read() = %d, %v, want 4, nil", n, err)
	}
	if _, err := src.Read(buf); err != io.EOF {
		t.Errorf("Read() at end = %v, want io.EOF", err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("Close() on non-closer = %v", err)
	}
}

func TestList(t *testing.T) {
	prev := lister
	t.Cleanup(func() { lister = prev })

	lister = func() ([]string, error) {
		return []string{"/dev/ttyUSB1", "/dev/ttyACM0", "/dev/ttyUSB0"}, nil
	}
	ports, err := List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyUSB1"}
	if strings.Join(ports, ",") != strings.Join(want, ",") {
		t.Errorf("List() = %v, want %v", ports, want)
	}

	lister = func() ([]string, error) { return nil, errors.New("no sysfs") }
	if _, err := List(); err == nil || !strings.Contains(err.Error(), "no sysfs") {
		t.Errorf("List() error = %v, want wrapped enumeration error", err)
	}
}
