package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/maintenance"
	"github.com/hamed0406/downwatch/internal/metrics"
	"github.com/hamed0406/downwatch/internal/notify"
	"github.com/hamed0406/downwatch/internal/probe"
	"github.com/hamed0406/downwatch/internal/repo"
)

// ErrStateUnavailable means the state store failed its pre-cycle check.
// No probing happens when it is returned.
var ErrStateUnavailable = errors.New("state store unavailable")

const maintenanceMessage = "Within maintenance window"

type Options struct {
	TargetURL   string
	DisplayName string
	// Recipient is the only sender whose commands are honoured.
	Recipient      string
	Policy         Policy
	Window         maintenance.Window
	Location       *time.Location
	DownHTTPStatus int
	DebugAlways    bool
}

// CycleOptions carries per-trigger switches.
type CycleOptions struct {
	Debug bool
}

// Engine runs evaluation cycles. Commands and Metrics may be nil.
type Engine struct {
	Logger   *zap.Logger
	Store    repo.StateStore
	Prober   probe.Checker
	Notifier notify.Notifier
	Commands notify.CommandSource
	Metrics  *metrics.Metrics
	Opts     Options
	Now      func() time.Time
}

func NewEngine(
	logger *zap.Logger,
	store repo.StateStore,
	prober probe.Checker,
	notifier notify.Notifier,
	commands notify.CommandSource,
	opts Options,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Log{Logger: logger}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DownHTTPStatus < 100 || opts.DownHTTPStatus > 599 {
		opts.DownHTTPStatus = http.StatusOK
	}
	if opts.DisplayName == "" {
		opts.DisplayName = "service"
	}
	return &Engine{
		Logger:   logger,
		Store:    store,
		Prober:   prober,
		Notifier: notifier,
		Commands: commands,
		Opts:     opts,
		Now:      time.Now,
	}
}

// RunCycle performs one evaluation. The only error it returns wraps
// ErrStateUnavailable; every other failure is logged and absorbed.
func (e *Engine) RunCycle(ctx context.Context, co CycleOptions) (domain.CycleResult, error) {
	cycleID := uuid.NewString()
	log := e.Logger.With(zap.String("cycle_id", cycleID))

	if err := e.Store.Ping(ctx); err != nil {
		log.Error("state_unavailable", zap.Error(err))
		e.Metrics.Cycle("error")
		return domain.CycleResult{}, fmt.Errorf("%w: %w", ErrStateUnavailable, err)
	}

	now := e.Now()
	e.applyCommands(ctx, log)

	if e.Opts.Window.Contains(now.In(e.Opts.Location)) {
		return e.maintenance(ctx, log, cycleID, now, co), nil
	}

	start := time.Now()
	res := e.Prober.Check(ctx, e.Opts.TargetURL)
	e.Metrics.Probe(time.Since(start), res.Success)
	log.Info("probe_result",
		zap.String("url", e.Opts.TargetURL),
		zap.Bool("up", res.Success),
		zap.Int("status", res.StatusCode),
		zap.Float64("latency_ms", res.LatencyMS),
		zap.String("reason", res.Message),
	)

	var d Decision
	st, err := e.Store.Update(ctx, func(st *domain.MonitorState) {
		d = Decide(*st, res.Success, now, e.Opts.Policy)
		*st = d.State
	})
	if err != nil {
		log.Warn("state_write_failed", zap.Error(err))
	}
	for _, n := range d.Notify {
		e.send(ctx, log, n)
	}

	out := e.result(cycleID, now, res.Success, st, d)
	e.maybeDebug(ctx, log, co, out, &res)

	e.Metrics.Cycle(string(out.Outcome))
	e.Metrics.State(st.Muted, d.DownFor)
	log.Info("cycle_done",
		zap.String("outcome", string(out.Outcome)),
		zap.Int("http_status", out.HTTPStatus),
		zap.Bool("hard_outage", d.HardOutage),
		zap.Duration("down_for", d.DownFor),
		zap.Bool("muted", st.Muted),
		zap.Int("notifications", len(d.Notify)),
	)
	return out, nil
}

func (e *Engine) applyCommands(ctx context.Context, log *zap.Logger) {
	if e.Commands == nil {
		return
	}
	cur, err := e.Store.Load(ctx)
	if err != nil {
		log.Warn("state_read_failed", zap.Error(err))
	}
	cmds, err := e.Commands.Fetch(ctx, cur.CommandCursor)
	if err != nil {
		log.Warn("commands_fetch_failed", zap.Error(err))
		return
	}
	if len(cmds) == 0 {
		return
	}

	var applied CommandOutcome
	st, err := e.Store.Update(ctx, func(st *domain.MonitorState) {
		applied = ApplyCommands(*st, cmds, e.Opts.Recipient)
		*st = applied.State
	})
	if err != nil {
		log.Warn("state_write_failed", zap.String("step", "commands"), zap.Error(err))
	}
	var cursor int64
	if st.CommandCursor != nil {
		cursor = *st.CommandCursor
	}
	log.Info("commands_applied",
		zap.Int("fetched", len(cmds)),
		zap.Int("seen", applied.Seen),
		zap.Int("acks", len(applied.Acks)),
		zap.Bool("muted", st.Muted),
		zap.Int64("cursor", cursor),
	)
	for _, ack := range applied.Acks {
		e.Metrics.Command(ack.Command)
		e.send(ctx, log, ack)
	}
}

func (e *Engine) maintenance(ctx context.Context, log *zap.Logger, cycleID string, now time.Time, co CycleOptions) domain.CycleResult {
	st, err := e.Store.Update(ctx, func(st *domain.MonitorState) {
		*st = ResetForMaintenance(*st, now)
	})
	if err != nil {
		log.Warn("state_write_failed", zap.String("step", "maintenance"), zap.Error(err))
	}
	out := domain.CycleResult{
		HTTPStatus:         http.StatusOK,
		Outcome:            domain.OutcomeMaintenance,
		ConfiguredDownHTTP: e.Opts.DownHTTPStatus,
		Summary: domain.Summary{
			OK:      true,
			Status:  domain.OutcomeMaintenance,
			Message: maintenanceMessage,
			CycleID: cycleID,
			Time:    e.stamp(now),
		},
	}
	e.maybeDebug(ctx, log, co, out, nil)
	e.Metrics.Cycle(string(out.Outcome))
	e.Metrics.State(st.Muted, 0)
	log.Info("cycle_done",
		zap.String("outcome", string(out.Outcome)),
		zap.String("window", e.Opts.Window.String()),
	)
	return out
}

func (e *Engine) result(cycleID string, now time.Time, up bool, st domain.MonitorState, d Decision) domain.CycleResult {
	if up {
		return domain.CycleResult{
			HTTPStatus:         http.StatusOK,
			Outcome:            domain.OutcomeUp,
			ConfiguredDownHTTP: e.Opts.DownHTTPStatus,
			Summary: domain.Summary{
				OK:      true,
				Status:  domain.OutcomeUp,
				CycleID: cycleID,
				Time:    e.stamp(now),
			},
		}
	}

	code := http.StatusOK
	if d.HardOutage {
		code = e.Opts.DownHTTPStatus
	}
	downFor := int64(d.DownFor / time.Second)
	threshold := int64(e.Opts.Policy.AlertAfter / time.Second)
	hard := d.HardOutage
	var since *time.Time
	if st.DownSince != nil {
		since = domain.TimePtr(st.DownSince.In(e.Opts.Location))
	}
	return domain.CycleResult{
		HTTPStatus:         code,
		Outcome:            domain.OutcomeDown,
		HardOutage:         hard,
		ConfiguredDownHTTP: e.Opts.DownHTTPStatus,
		Summary: domain.Summary{
			OK:               true,
			Status:           domain.OutcomeDown,
			CycleID:          cycleID,
			DownSince:        since,
			DownForSeconds:   &downFor,
			ThresholdSeconds: &threshold,
			HardOutage:       &hard,
			HTTPStatus:       code,
			Time:             e.stamp(now),
		},
	}
}

type debugProbe struct {
	Status    int     `json:"status"`
	Reason    string  `json:"reason"`
	LatencyMS float64 `json:"latency_ms"`
}

type debugPayload struct {
	domain.Summary
	Probe *debugProbe `json:"probe,omitempty"`
}

// maybeDebug sends the cycle summary, plus the probe outcome when a probe ran.
func (e *Engine) maybeDebug(ctx context.Context, log *zap.Logger, co CycleOptions, out domain.CycleResult, pr *probe.CheckResult) {
	if !e.Opts.DebugAlways && !co.Debug {
		return
	}
	payload := debugPayload{Summary: out.Summary}
	if pr != nil {
		payload.Probe = &debugProbe{Status: pr.StatusCode, Reason: pr.Message, LatencyMS: pr.LatencyMS}
	}
	e.send(ctx, log, Notification{Kind: KindDebug, Body: DebugMessage(out.HTTPStatus, payload)})
}

// send is best effort; failures never roll back persisted state.
func (e *Engine) send(ctx context.Context, log *zap.Logger, n Notification) {
	err := e.Notifier.Send(ctx, n.Text(e.Opts.DisplayName))
	e.Metrics.Notification(string(n.Kind), err)
	if err != nil {
		log.Warn("notify_failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		return
	}
	log.Info("notify_sent", zap.String("kind", string(n.Kind)))
}

func (e *Engine) stamp(now time.Time) string {
	return now.In(e.Opts.Location).Format(time.RFC3339)
}
