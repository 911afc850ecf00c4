package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	logx "proxybot/pkg/logx"
)

// fileStore appends one JSON object per line to <path>.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
	f  *os.File
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &fileStore{log: log, path: path, f: f}, nil
}

func (s *fileStore) AppendAudit(_ context.Context, e AuditEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.f).Encode(e)
}

func (s *fileStore) RecentAudit(_ context.Context, n int) ([]AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := logx.Tail(s.path, n)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(lines))
	for _, ln := range lines {
		var e AuditEntry
		if err := json.Unmarshal([]byte(ln), &e); err != nil {
			s.log.Debug("skipping malformed audit line", logx.Err(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
