// Package sink provides append-only destinations for extraction records.
package sink

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"mailparser/internal/domain"
)

// JSONL appends one JSON object per line to a local file.
type JSONL struct {
	mu   sync.Mutex
	path string
}

// NewJSONL creates a JSONL sink writing to path. Parent directories are created on first append.
func NewJSONL(path string) *JSONL {
	return &JSONL{path: path}
}

// Path returns the file the sink appends to.
func (s *JSONL) Path() string {
	return s.path
}

func (s *JSONL) Append(ctx context.Context, record *domain.ExtractionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sink.JSONL: marshal: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("sink.JSONL: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("sink.JSONL: open: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("sink.JSONL: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("sink.JSONL: close: %w", err)
	}
	return nil
}

// maxLineBytes bounds a single record line when reading the file back.
const maxLineBytes = 16 << 20

// List reads the file back in append order. A missing file is an empty log.
func (s *JSONL) List(ctx context.Context, offset, limit int) ([]domain.ExtractionRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.ExtractionRecord{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("sink.JSONL: open: %w", err)
	}
	defer func() { _ = f.Close() }()

	out := []domain.ExtractionRecord{}
	total := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		idx := total
		total++
		if idx < offset || (limit > 0 && idx >= offset+limit) {
			continue
		}
		var rec domain.ExtractionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, 0, fmt.Errorf("sink.JSONL: line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("sink.JSONL: read: %w", err)
	}
	return out, total, nil
}
