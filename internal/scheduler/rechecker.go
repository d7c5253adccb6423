package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/monitor"
)

// Cycler runs one evaluation cycle; *monitor.Engine implements it.
type Cycler interface {
	RunCycle(ctx context.Context, opts monitor.CycleOptions) (domain.CycleResult, error)
}

// Rechecker triggers cycles on a fixed interval for deployments without an
// external scheduler. Cycles never overlap: ticks that arrive while one is
// running are dropped.
type Rechecker struct {
	Logger   *zap.Logger
	Engine   Cycler
	Interval time.Duration
	Timeout  time.Duration
}

func NewRechecker(
	logger *zap.Logger,
	engine Cycler,
	interval time.Duration,
	timeout time.Duration,
) *Rechecker {
	if interval < 0 {
		interval = 0
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Rechecker{
		Logger:   logger,
		Engine:   engine,
		Interval: interval,
		Timeout:  timeout,
	}
}

// Run starts the loop. It does an immediate pass, then runs each tick.
// Stops when ctx is cancelled.
func (r *Rechecker) Run(ctx context.Context) {
	if r.Interval == 0 {
		// disabled
		r.Logger.Info("rechecker_disabled")
		return
	}
	t := time.NewTicker(r.Interval)
	defer t.Stop()

	r.Logger.Info("rechecker_started", zap.Duration("interval", r.Interval))

	// immediate pass
	r.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("rechecker_stopped")
			return
		case <-t.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Rechecker) runOnce(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	res, err := r.Engine.RunCycle(cctx, monitor.CycleOptions{})
	if err != nil {
		r.Logger.Warn("rechecker_cycle_error", zap.Error(err))
		return
	}
	r.Logger.Debug("rechecker_checked",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("http_status", res.HTTPStatus),
		zap.Bool("hard_outage", res.HardOutage),
	)
}
