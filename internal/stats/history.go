package stats

import (
	"sync"

	"github.com/muurk/canmon/internal/protocol"
)

// DefaultHistorySize is the number of frames kept when no size is configured
const DefaultHistorySize = 1000

// History is a fixed-capacity FIFO of the most recent classified frames
type History struct {
	mu    sync.Mutex
	buf   []protocol.ClassifiedFrame
	head  int // Index of the oldest entry
	count int
}

// NewHistory creates a history holding at most capacity frames
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]protocol.ClassifiedFrame, capacity)}
}

// Push appends a frame, evicting the oldest one when full
func (h *History) Push(cf protocol.ClassifiedFrame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = cf
		h.count++
		return
	}
	h.buf[h.head] = cf
	h.head = (h.head + 1) % len(h.buf)
}

// Recent returns the retained frames, oldest first and most recent last
func (h *History) Recent() []protocol.ClassifiedFrame {
	return h.Last(-1)
}

// Last returns up to n of the most recent frames in arrival order.
// A negative n returns everything retained.
func (h *History) Last(n int) []protocol.ClassifiedFrame {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n < 0 || n > h.count {
		n = h.count
	}
	out := make([]protocol.ClassifiedFrame, n)
	skip := h.count - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head+skip+i)%len(h.buf)]
	}
	return out
}

// Len returns the number of retained frames
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Cap returns the fixed capacity
func (h *History) Cap() int {
	return len(h.buf)
}
