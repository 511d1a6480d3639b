package guard

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultRotateMaxBytes = 10 * 1024 * 1024

// JSONLAuditSink appends events to a file, one JSON object per line, and
// renames the file aside once it would grow past RotateMaxBytes.
type JSONLAuditSink struct {
	Path           string
	RotateMaxBytes int64

	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	size int64
}

func NewJSONLAuditSink(path string, rotateMaxBytes int64) (*JSONLAuditSink, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("missing audit jsonl path")
	}
	if rotateMaxBytes <= 0 {
		rotateMaxBytes = defaultRotateMaxBytes
	}
	s := &JSONLAuditSink{Path: path, RotateMaxBytes: rotateMaxBytes}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.openLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONLAuditSink) Emit(ctx context.Context, e AuditEvent) error {
	_ = ctx
	if s == nil {
		return nil
	}
	line, err := json.Marshal(stampEvent(e))
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeededLocked(int64(len(line))); err != nil {
		return err
	}
	if s.w == nil {
		return fmt.Errorf("audit sink is closed")
	}
	n, err := s.w.Write(line)
	s.size += int64(n)
	if err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *JSONLAuditSink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *JSONLAuditSink) closeLocked() error {
	if s.w != nil {
		_ = s.w.Flush()
	}
	var err error
	if s.f != nil {
		err = s.f.Close()
	}
	s.f, s.w, s.size = nil, nil, 0
	return err
}

func (s *JSONLAuditSink) openLocked() error {
	if dir := filepath.Dir(s.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if st, err := f.Stat(); err == nil {
		s.size = st.Size()
	}
	s.f = f
	s.w = bufio.NewWriter(f)
	return nil
}

func (s *JSONLAuditSink) rotateIfNeededLocked(add int64) error {
	if s.RotateMaxBytes <= 0 || s.size == 0 || s.size+add <= s.RotateMaxBytes {
		return nil
	}
	_ = s.closeLocked()
	rotated := s.Path + "." + time.Now().UTC().Format("20060102T150405.000000000Z")
	if err := os.Rename(s.Path, rotated); err != nil {
		// Keep appending to the current file when the rename fails.
		return s.openLocked()
	}
	return s.openLocked()
}
