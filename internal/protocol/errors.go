package protocol

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of a deframing failure
type ErrorKind int

const (
	// KindNoData indicates the link timed out before a full header arrived
	KindNoData ErrorKind = iota
	// KindBadMagic indicates the header marker did not match
	KindBadMagic
	// KindBadHeader indicates a header whose record count is out of bounds
	KindBadHeader
	// KindTruncatedRecord indicates the body ended before all records arrived
	KindTruncatedRecord
	// KindBadChecksum indicates a trailer mismatch
	KindBadChecksum
	// KindTransportFailure indicates the byte source itself failed
	KindTransportFailure
)

// Sentinel errors for errors.Is matching
var (
	ErrNoData           = errors.New("no data")
	ErrBadMagic         = errors.New("bad magic")
	ErrBadHeader        = errors.New("bad header")
	ErrTruncatedRecord  = errors.New("truncated record")
	ErrBadChecksum      = errors.New("bad checksum")
	ErrTransportFailure = errors.New("transport failure")
)

// ErrorKinds returns every kind that counts as a deframing error
func ErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindBadMagic,
		KindBadHeader,
		KindTruncatedRecord,
		KindBadChecksum,
		KindTransportFailure,
	}
}

// String returns a short snake_case name for the kind
func (k ErrorKind) String() string {
	switch k {
	case KindNoData:
		return "no_data"
	case KindBadMagic:
		return "bad_magic"
	case KindBadHeader:
		return "bad_header"
	case KindTruncatedRecord:
		return "truncated_record"
	case KindBadChecksum:
		return "bad_checksum"
	case KindTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNoData:
		return ErrNoData
	case KindBadMagic:
		return ErrBadMagic
	case KindBadHeader:
		return ErrBadHeader
	case KindTruncatedRecord:
		return ErrTruncatedRecord
	case KindBadChecksum:
		return ErrBadChecksum
	case KindTransportFailure:
		return ErrTransportFailure
	default:
		return nil
	}
}

// DeframeError describes why a packet attempt was abandoned
type DeframeError struct {
	Kind    ErrorKind
	Message string
	Header  Header // Header as parsed (zero if it never arrived)
	Got     int    // Bytes received for the failing read
	Want    int    // Bytes required for the failing read
	Skipped int    // Bytes discarded while scanning for the next magic
	Err     error  // Underlying cause (if any)
}

// Error implements the error interface
func (e *DeframeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeframeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *DeframeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of a deframing error, or false if err is not one
func KindOf(err error) (ErrorKind, bool) {
	var de *DeframeError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return 0, false
}
