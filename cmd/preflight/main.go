// cmd/preflight/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/app"
	"github.com/hamed0406/downwatch/internal/config"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "preflight",
		Short:        "Validate downwatch configuration before deploying",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if code := check(cmd.Context(), os.Stdout, os.Stderr, configPath); code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("DOWNWATCH_CONFIG"), "path to YAML config (env only when empty)")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type reporter struct {
	out, errOut io.Writer
	failed      bool
}

func (r *reporter) ok(msg string) {
	color.New(color.FgGreen).Fprintln(r.out, "✔", msg)
}

func (r *reporter) warn(msg string) {
	color.New(color.FgYellow).Fprintln(r.errOut, "⚠", msg)
}

func (r *reporter) fail(msg string) {
	r.failed = true
	color.New(color.FgRed, color.Bold).Fprintln(r.errOut, "✖", msg)
}

// check prints one line per finding and returns the process exit code.
func check(ctx context.Context, out, errOut io.Writer, configPath string) int {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &reporter{out: out, errOut: errOut}

	cfg, err := config.Load(configPath)
	if err != nil {
		for _, line := range strings.Split(err.Error(), "; ") {
			r.fail(line)
		}
		return 1
	}
	r.ok("config valid")
	r.ok("target " + cfg.Target.URL + " as " + cfg.Target.DisplayName)
	r.ok(fmt.Sprintf("alert after %s, remind every %s, down status %d",
		cfg.Alerting.AlertAfter, cfg.Alerting.ReminderInterval, cfg.Alerting.DownHTTPStatus))

	if cfg.Window.Overnight() {
		r.warn("maintenance window " + cfg.Window.String() + " crosses midnight and will never match")
	} else {
		r.ok("maintenance window " + cfg.Window.String() + " " + cfg.Location.String())
	}

	if cfg.Telegram.BotToken == "" {
		r.warn("telegram not configured; alerts go to the log and chat commands are disabled")
	} else {
		r.ok("telegram chat " + cfg.Telegram.ChatID)
	}
	if cfg.Slack.WebhookURL != "" {
		r.ok("slack webhook present")
	}

	if len(cfg.Server.PublicAPIKeys) == 0 {
		r.warn("PUBLIC_API_KEYS empty; /check is open to anyone who can reach " + cfg.Server.Addr)
	}
	if len(cfg.Server.AdminAPIKeys) == 0 {
		r.warn("ADMIN_API_KEYS empty; mute/unmute routes are open")
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		r.warn("ALLOWED_ORIGINS empty; CORS allows every origin")
	}

	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	a, err := app.Build(pctx, cfg, zap.NewNop())
	if err != nil {
		r.fail("state store: " + err.Error())
		return 1
	}
	defer a.Close()
	if err := a.Store.Ping(pctx); err != nil {
		r.fail("state store (" + cfg.State.Driver + ") not writable: " + err.Error())
	} else {
		r.ok("state store (" + cfg.State.Driver + ") writable")
	}

	if r.failed {
		return 1
	}
	r.ok("preflight passed")
	return 0
}
