package main

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetthepeople/mtp/internal/heartbeat"
	"github.com/meetthepeople/mtp/internal/home"
	"github.com/meetthepeople/mtp/internal/metrics"
)

// idlePresence stands in for the heartbeat when it is disabled in config.
type idlePresence struct{}

func (idlePresence) Start(context.Context) (*heartbeat.Handle, error) { return &heartbeat.Handle{}, nil }
func (idlePresence) Wait(context.Context) error                       { return nil }

func newHeartbeat(a *app, m *metrics.Metrics) (home.Presence, error) {
	if !a.cfg.Heartbeat.Enabled {
		log.Printf("event=heartbeat_disabled")
		return idlePresence{}, nil
	}
	opts := []heartbeat.Option{
		heartbeat.WithInterval(time.Duration(a.cfg.Heartbeat.IntervalSec) * time.Second),
		heartbeat.WithDebounce(time.Duration(a.cfg.Heartbeat.DebounceSec) * time.Second),
		heartbeat.WithSource(a.cfg.Heartbeat.Source),
		heartbeat.WithReportTimeout(time.Duration(a.cfg.API.TimeoutSec) * time.Second),
	}
	if m != nil {
		opts = append(opts, heartbeat.WithObserver(m.Observe))
	}
	ctrl, err := heartbeat.New(heartbeat.ReporterFunc(a.client.CaptureActivity), a.session, opts...)
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

func homeCmd(opts *rootOptions) *cobra.Command {
	var (
		peers   []int64
		watch   bool
		refresh time.Duration
	)
	cmd := &cobra.Command{
		Use:   "home",
		Short: "Show your conversations and report presence while open",
		Long: `Show the conversation list. Conversations come from the peers this
session has talked to plus any --peer ids.

With --watch the screen stays open, refreshing the list, until interrupted;
your presence is reported every heartbeat interval while it is open.`,
		Args: cobra.NoArgs,
		RunE: run(opts, true, func(ctx context.Context, a *app, _ []string) error {
			m := metrics.New()
			if a.cfg.Metrics.Bind != "" {
				metricsCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					if err := m.Serve(metricsCtx, a.cfg.Metrics.Bind); err != nil {
						log.Printf("event=metrics_failed err=%v", err)
					}
				}()
			}

			presence, err := newHeartbeat(a, m)
			if err != nil {
				return err
			}
			if err := a.session.AddPeers(ctx, peers...); err != nil {
				return err
			}
			screen := home.NewScreen(a.client, a.session, presence, a.out, home.Options{
				Watch:   watch,
				Refresh: refresh,
			})
			m.SetMounted(true)
			defer m.SetMounted(false)
			return screen.Run(ctx)
		}),
	}
	cmd.Flags().Int64SliceVar(&peers, "peer", nil, "user id to include in the list (repeatable); remembered for this session")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep the screen open until interrupted")
	cmd.Flags().DurationVar(&refresh, "refresh", 30*time.Second, "list refresh interval with --watch (0 disables)")
	return cmd
}
