package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// FileHistory appends finished run records to a JSON-lines file. Appends
// are serialized in-process with a mutex and across processes with an
// exclusive flock, so concurrent batch workers and parallel invocations
// cannot interleave records.
type FileHistory struct {
	path string
	mu   sync.Mutex
}

// NewFileHistory creates a history sink writing to path. The parent
// directory is created on first record.
func NewFileHistory(path string) *FileHistory {
	return &FileHistory{path: path}
}

// Record implements HistorySink.
func (h *FileHistory) Record(_ context.Context, rec RunRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal run record: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("lock history file: %w", err)
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	return nil
}

// Load reads every recorded run, oldest first. A missing file yields an
// empty history.
func (h *FileHistory) Load() ([]RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	var records []RunRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec RunRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parse history record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
