package serialport

import "io"

// ReaderSource adapts an io.Reader to the deframer's byte source contract.
// End of input is reported as io.EOF.
type ReaderSource struct {
	r io.Reader
}

// NewReaderSource wraps r
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Read reads up to len(p) bytes from the underlying reader
func (s *ReaderSource) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Close closes the underlying reader when it supports it
func (s *ReaderSource) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
