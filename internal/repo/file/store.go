// Package file keeps MonitorState as a small pretty-printed JSON document.
// Writes go through a temp file and rename; each read-modify-write holds an
// exclusive lock on "<path>.lock".
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

// ErrLockTimeout is returned (combined with any write error) when the lock
// could not be taken in time. The write still happens, last writer wins.
var ErrLockTimeout = errors.New("state lock: timed out")

const defaultLockTimeout = 5 * time.Second

type Store struct {
	path        string
	lockTimeout time.Duration
	log         *zap.Logger
}

func New(path string, lockTimeout time.Duration, log *zap.Logger) *Store {
	if lockTimeout <= 0 {
		lockTimeout = defaultLockTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, lockTimeout: lockTimeout, log: log}
}

func (s *Store) Path() string { return s.path }

// Ping checks that the state directory exists and accepts new files.
func (s *Store) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("state dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("state dir: %s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".downwatch-ping-*")
	if err != nil {
		return fmt.Errorf("state dir not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.MonitorState, error) {
	return s.read(), nil
}

func (s *Store) Update(ctx context.Context, fn func(*domain.MonitorState)) (domain.MonitorState, error) {
	unlock, lockErr := acquire(ctx, s.path+".lock", s.lockTimeout)
	if lockErr != nil {
		s.log.Warn("state_lock_failed", zap.String("path", s.path), zap.Error(lockErr))
	}

	st := s.read()
	fn(&st)
	writeErr := s.write(st)

	if unlock != nil {
		unlock()
	}
	return st, multierr.Combine(lockErr, writeErr)
}

func (s *Store) read() domain.MonitorState {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("state_read_failed", zap.String("path", s.path), zap.Error(err))
		}
		return domain.DefaultState()
	}
	var st domain.MonitorState
	if err := json.Unmarshal(raw, &st); err != nil {
		s.log.Warn("state_malformed", zap.String("path", s.path), zap.Error(err))
		return domain.DefaultState()
	}
	st.Normalize()
	return st
}

func (s *Store) write(st domain.MonitorState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".monitor_state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
