package log

import (
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends scan activity events to a CBOR stream on disk, one
// event per record. Safe for concurrent use: the device core logs from both
// the event-loop and frontend goroutines.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewFileLogger opens (or creates, mode 0644) the activity log at path and
// appends to it, so one log survives across backend restarts.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, encoder: NewEncoder(f)}, nil
}

// Log appends one event, stamping it with the current time if its Timestamp
// is unset. Encoding errors are swallowed; an unwritable log must never take
// down a running scan.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = l.encoder.Encode(event)
}

// Close closes the underlying file. Further Log calls are silently dropped,
// and calling Close again is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
