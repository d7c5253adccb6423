// Package app wires configuration into a running monitor: store, prober,
// notifiers, engine and HTTP server.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/config"
	"github.com/hamed0406/downwatch/internal/httpapi"
	apimw "github.com/hamed0406/downwatch/internal/httpapi/middleware"
	"github.com/hamed0406/downwatch/internal/metrics"
	"github.com/hamed0406/downwatch/internal/monitor"
	"github.com/hamed0406/downwatch/internal/notify"
	"github.com/hamed0406/downwatch/internal/probe"
	"github.com/hamed0406/downwatch/internal/repo"
	"github.com/hamed0406/downwatch/internal/repo/file"
	"github.com/hamed0406/downwatch/internal/repo/memory"
	"github.com/hamed0406/downwatch/internal/repo/postgres"
	"github.com/hamed0406/downwatch/internal/scheduler"
)

type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     repo.StateStore
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Engine    *monitor.Engine
	Server    *httpapi.Server
	Rechecker *scheduler.Rechecker

	closers []func()
}

// Build assembles every component from cfg. Close releases what it opened.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, Metrics: metrics.New()}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = store

	notifier, commands, err := buildNotifiers(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Notifier = notifier

	a.Engine = monitor.NewEngine(log, store, buildProber(cfg), notifier, commands, monitor.Options{
		TargetURL:   cfg.Target.URL,
		DisplayName: cfg.Target.DisplayName,
		Recipient:   cfg.Telegram.ChatID,
		Policy: monitor.Policy{
			AlertAfter:       cfg.Alerting.AlertAfter,
			ReminderInterval: cfg.Alerting.ReminderInterval,
		},
		Window:         cfg.Window,
		Location:       cfg.Location,
		DownHTTPStatus: cfg.Alerting.DownHTTPStatus,
		DebugAlways:    cfg.Debug.Always,
	})
	a.Engine.Metrics = a.Metrics

	a.Server = httpapi.NewServer(log, a.Engine, store, a.Metrics)
	a.Server.CycleTimeout = cfg.Server.CycleTimeout
	a.Server.AllowDebugQuery = cfg.Debug.QueryAllowed()

	a.Rechecker = scheduler.NewRechecker(log, a.Engine, cfg.Server.ScheduleInterval, cfg.Server.CycleTimeout)

	if cfg.Window.Overnight() {
		log.Warn("maintenance_window_never_matches",
			zap.String("window", cfg.Window.String()),
		)
	}
	return a, nil
}

// Handler is the fully configured HTTP router.
func (a *App) Handler() http.Handler {
	s := a.Config.Server
	keys := apimw.Keys{Public: s.PublicAPIKeys, Admin: s.AdminAPIKeys}
	return a.Server.Router(keys, s.AllowedOrigins, s.RatePerMinute, s.Burst)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context) (repo.StateStore, error) {
	sc := a.Config.State
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverPostgres:
		pg, err := postgres.New(ctx, sc.DatabaseURL, sc.MonitorID, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres state: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate postgres state: %w", err)
		}
		return pg, nil
	case config.DriverFile, "":
		return file.New(sc.Path, sc.LockTimeout, a.Logger), nil
	default:
		return nil, fmt.Errorf("unknown state driver %q", sc.Driver)
	}
}

func buildProber(cfg *config.Config) probe.Checker {
	hc := probe.NewHTTPChecker(cfg.Target.Timeout, cfg.Target.MaxRedirects)
	if cfg.Target.UserAgent != "" {
		hc.UserAgent = cfg.Target.UserAgent
	}
	return &probe.Diagnosing{
		Primary:  hc,
		Diagnose: &probe.DNSChecker{Resolver: net.DefaultResolver},
	}
}

// buildNotifiers returns the outbound fan-out and, when Telegram is
// configured, the inbound command source.
func buildNotifiers(cfg *config.Config, log *zap.Logger) (notify.Notifier, notify.CommandSource, error) {
	var (
		out      notify.Multi
		commands notify.CommandSource
	)
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, tg)
		commands = tg
	}
	if s := notify.NewSlack(cfg.Slack.WebhookURL); s != nil {
		out = append(out, s)
	}
	if len(out) == 0 {
		log.Warn("no_notification_channel", zap.String("fallback", "log"))
		return notify.Log{Logger: log}, nil, nil
	}
	return out, commands, nil
}
