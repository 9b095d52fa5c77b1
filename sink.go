package netbadge

import (
	"fmt"
	"io"
	"sync"
)

// Sink is the output handle a badge is rendered into.
//
// A Sink is passed to [NewUpdater] once, at construction. Implementations
// must be safe for concurrent use if they are shared between updaters.
type Sink interface {
	Render(b Badge)
}

// SinkFunc adapts an ordinary function to the [Sink] interface.
type SinkFunc func(b Badge)

// Render calls f(b).
func (f SinkFunc) Render(b Badge) {
	f(b)
}

// WriterSink renders each badge as a single "[class] text" line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a [WriterSink] writing to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Render writes b to the underlying writer. Write errors are ignored.
func (s *WriterSink) Render(b Badge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "[%s] %s\n", b.Class(), b.Text)
}
