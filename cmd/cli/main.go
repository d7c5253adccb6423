package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/downwatch/internal/app"
	"github.com/hamed0406/downwatch/internal/config"
	"github.com/hamed0406/downwatch/internal/domain"
	"github.com/hamed0406/downwatch/internal/logging"
	"github.com/hamed0406/downwatch/internal/monitor"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	out        io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:          "downwatch",
		Short:        "Run and inspect the downwatch monitor from a shell or cron",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("DOWNWATCH_CONFIG"), "path to YAML config (env only when empty)")

	var debug bool
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one cycle and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				res, err := a.Engine.RunCycle(ctx, monitor.CycleOptions{Debug: debug})
				if err != nil {
					return err
				}
				return c.printJSON(struct {
					HTTPStatus int `json:"http_status"`
					domain.Summary
				}{res.HTTPStatus, res.Summary})
			})
		},
	}
	run.Flags().BoolVar(&debug, "debug", false, "send the diagnostic message for this cycle")

	state := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted monitor state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Load(ctx)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]any{"state": st, "violations": st.Violations()})
			})
		},
	}

	testNotify := &cobra.Command{
		Use:   "test-notify [text]",
		Short: "Send a message through the configured channels",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" {
				text = "🧪 downwatch test notification"
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Notifier.Send(ctx, text); err != nil {
					return fmt.Errorf("send: %w", err)
				}
				fmt.Fprintln(c.out, "sent")
				return nil
			})
		},
	}

	root.AddCommand(run, state, c.muteCommand("mute", true), c.muteCommand("unmute", false), testNotify)
	return root
}

func (c *cli) muteCommand(name string, muted bool) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Set muted=%t on the persisted state", muted),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				st, err := a.Store.Update(ctx, func(st *domain.MonitorState) {
					st.Muted = muted
				})
				if err != nil {
					return err
				}
				return c.printJSON(st)
			})
		},
	}
}

func (c *cli) withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup_failed", zap.Error(err))
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.Server.CycleTimeout)
	defer cancel()
	return fn(ctx, a)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
