package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/repo"
)

var _ repo.StateStore = (*Store)(nil)

//go:embed schema.sql
var schemaSQL string

// Store keeps one monitor_state row per monitor id. Update holds a row lock
// (SELECT ... FOR UPDATE) for the whole read-modify-write.
type Store struct {
	pool      *pgxpool.Pool
	monitorID string
	log       *zap.Logger
}

func New(ctx context.Context, dsn, monitorID string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if monitorID == "" {
		monitorID = "default"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, monitorID: monitorID, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the monitor_state table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

const selectState = `
SELECT last_status, down_since, last_alert_sent, last_check,
       muted, last_reminder_sent_at, command_cursor
  FROM monitor_state
 WHERE monitor_id = $1`

func scanState(row pgx.Row) (domain.MonitorState, error) {
	var (
		st     domain.MonitorState
		status string
		alert  string
	)
	err := row.Scan(&status, &st.DownSince, &alert, &st.LastCheck,
		&st.Muted, &st.LastReminderSentAt, &st.CommandCursor)
	if err != nil {
		return domain.DefaultState(), err
	}
	st.LastStatus = domain.ParseStatus(status)
	st.LastAlertSent = domain.ParseAlertKind(alert)
	return st, nil
}

func (s *Store) Load(ctx context.Context) (domain.MonitorState, error) {
	st, err := scanState(s.pool.QueryRow(ctx, selectState, s.monitorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DefaultState(), nil
		}
		return domain.DefaultState(), fmt.Errorf("load state: %w", err)
	}
	return st, nil
}

func (s *Store) Update(ctx context.Context, fn func(*domain.MonitorState)) (domain.MonitorState, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		st := domain.DefaultState()
		fn(&st)
		return st, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO monitor_state (monitor_id) VALUES ($1) ON CONFLICT (monitor_id) DO NOTHING`,
		s.monitorID); err != nil {
		st := domain.DefaultState()
		fn(&st)
		return st, fmt.Errorf("ensure row: %w", err)
	}

	st, err := scanState(tx.QueryRow(ctx, selectState+" FOR UPDATE", s.monitorID))
	if err != nil {
		s.log.Warn("state_read_failed", zap.String("monitor_id", s.monitorID), zap.Error(err))
		st = domain.DefaultState()
	}
	fn(&st)

	_, err = tx.Exec(ctx, `
UPDATE monitor_state
   SET last_status = $2,
       down_since = $3,
       last_alert_sent = $4,
       last_check = $5,
       muted = $6,
       last_reminder_sent_at = $7,
       command_cursor = $8,
       updated_at = now()
 WHERE monitor_id = $1`,
		s.monitorID, string(st.LastStatus), st.DownSince, string(st.LastAlertSent),
		st.LastCheck, st.Muted, st.LastReminderSentAt, st.CommandCursor)
	if err != nil {
		return st, fmt.Errorf("update state: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return st, fmt.Errorf("commit: %w", err)
	}
	return st, nil
}
