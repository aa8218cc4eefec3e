// Package sessionlog appends a CBOR-encoded audit trail of CAT/FMP
// transactions to a file, grounded on the teacher's helpers.go pattern of
// building a small map and handing it to cbor.Marshal before writing it to
// the wire — here applied to an on-disk record instead of a UART frame.
package sessionlog

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Entry is one logged transaction.
type Entry struct {
	Channel string `cbor:"channel"`
	Op      string `cbor:"op"`
	Detail  string `cbor:"detail"`
	Error   string `cbor:"error,omitempty"`
}

// Writer appends CBOR-encoded Entry records to a file. The zero value
// (from New with an empty path) is a valid no-op writer.
type Writer struct {
	mu   sync.Mutex
	file *os.File
}

// New opens path for appending, creating it if necessary. An empty path
// yields a no-op Writer.
func New(path string) (*Writer, error) {
	if path == "" {
		return &Writer{}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open session log %s: %w", path, err)
	}
	return &Writer{file: f}, nil
}

// Close closes the underlying file, if any.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// Append encodes entry as CBOR and appends it to the log.
func (w *Writer) Append(entry Entry) error {
	if w.file == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := cbor.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal session log entry: %w", err)
	}
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	return nil
}
