package repo

import (
	"context"

	"github.com/hamed0406/downwatch/internal/domain"
)

// StateStore persists the single MonitorState record between cycles.
//
// Load never fails on missing or malformed content; it falls back to
// domain.DefaultState. Update is a locked read-modify-write: fn runs exactly
// once on the current record and the post-fn record is returned even when
// the write failed. A non-nil error from Update reports lock or write trouble
// only. Ping reports configuration-class problems (no writable location,
// unreachable database) before a cycle starts.
type StateStore interface {
	Load(ctx context.Context) (domain.MonitorState, error)
	Update(ctx context.Context, fn func(*domain.MonitorState)) (domain.MonitorState, error)
	Ping(ctx context.Context) error
}
