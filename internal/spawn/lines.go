package spawn

import (
	"bytes"
	"strings"
	"sync"
)

// lineWriter buffers child output and hands every complete line to a sink
// as soon as it arrives. Both "\n" and "\r" end a line, so progress output
// redrawn in place is forwarded while the child runs. Blank lines are dropped.
type lineWriter struct {
	mu   sync.Mutex
	sink Sink
	buf  bytes.Buffer
}

func newLineWriter(sink Sink) *lineWriter {
	return &lineWriter{sink: sink}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		data := w.buf.Bytes()
		i := bytes.IndexAny(data, "\r\n")
		if i < 0 {
			break
		}
		// "\r\n" leaves an empty line behind, which emit drops.
		line := string(data[:i])
		w.buf.Next(i + 1)
		w.emit(line)
	}
	return len(p), nil
}

// Flush emits a trailing partial line, if any.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	w.sink(line)
}
