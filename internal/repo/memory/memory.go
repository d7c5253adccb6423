package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	state  domain.MonitorState
	writes int
}

func New() *Store {
	return &Store{state: domain.DefaultState()}
}

// NewWith starts the store from st instead of the defaults.
func NewWith(st domain.MonitorState) *Store {
	st.Normalize()
	return &Store{state: st.Clone()}
}

func (m *Store) Load(ctx context.Context) (domain.MonitorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone(), nil
}

func (m *Store) Update(ctx context.Context, fn func(*domain.MonitorState)) (domain.MonitorState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.state.Clone()
	fn(&st)
	m.state = st.Clone()
	m.writes++
	return st, nil
}

func (m *Store) Ping(ctx context.Context) error { return nil }

// Writes reports how many Update calls have been persisted.
func (m *Store) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
