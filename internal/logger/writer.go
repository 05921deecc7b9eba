package logger

import (
	"bytes"
	"context"
	"sync"
)

// LineWriter is an io.Writer that logs every completed line at the info level.
// Partial lines are buffered until a newline arrives or Flush is called.
type LineWriter struct {
	ctx    context.Context //nolint:containedctx // The writer logs on behalf of a single operation.
	stream string

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewLineWriter creates a LineWriter tagging entries with the given stream name.
func NewLineWriter(ctx context.Context, stream string) *LineWriter {
	return &LineWriter{
		ctx:    ctx,
		stream: stream,
	}
}

// Write implements io.Writer.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)

	for {
		line, err := w.buf.ReadBytes('\n')
		if err != nil {
			// Put the incomplete tail back for the next write.
			w.buf.Write(line)
			break
		}

		w.emit(line[:len(line)-1])
	}

	return len(p), nil
}

// Flush logs any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return
	}

	w.emit(w.buf.Bytes())
	w.buf.Reset()
}

func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}

	InfoKV(w.ctx, string(line), "stream", w.stream)
}
