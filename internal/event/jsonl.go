package event

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
)

// Log appends marketplace events to a JSONL file, one event per line.
type Log struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// OpenLog opens (or creates) an append-only JSONL event log at path.
func OpenLog(path string) (*Log, error) {
	if path == "" {
		return nil, fmt.Errorf("event log path is required")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &Log{
		file:   file,
		writer: bufio.NewWriter(file),
	}, nil
}

// Emit writes one event as a JSON line. Marshal or write failures are
// logged rather than propagated: event emission must never abort a
// settlement operation that has already committed.
func (l *Log) Emit(evt Event) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	encoded, err := json.Marshal(evt)
	if err != nil {
		log.Printf("encode event %s: %v", evt.Type, err)
		return
	}
	if _, err := l.writer.Write(append(encoded, '\n')); err != nil {
		log.Printf("append event %s: %v", evt.Type, err)
	}
}

// Close flushes buffered events and closes the underlying file.
func (l *Log) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("flush event log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close event log: %w", err)
	}
	return nil
}

var _ Emitter = (*Log)(nil)
