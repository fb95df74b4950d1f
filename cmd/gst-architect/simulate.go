package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/internal/sessionrt"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
)

type simulateFlags struct {
	name         string
	items        int
	itemDuration time.Duration
	failEvery    int
}

func newSimulateCmd(g *globalFlags) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate <file>",
		Short: "Run the control loop of a session against a media-less engine",
		Long: `simulate drives the same state machine the generated script runs,
with pipelines that reach end-of-stream after --item-duration. It shows how
playlists advance and how restarts back off without touching GStreamer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options(cmd)
			if err != nil {
				return err
			}
			sessions, err := loadValid(args[0])
			if err != nil {
				return err
			}
			s, err := pickSession(sessions, f.name)
			if err != nil {
				return err
			}

			log := g.logger().Named("simulate")
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := simulate(ctx, cmd.OutOrStdout(), log, s, opts, f)
			fmt.Fprintf(cmd.OutOrStdout(), "starts=%d restarts=%d eos=%d errors=%d\n", st.Starts, st.Restarts, st.EOS, st.Errors)
			return err
		},
	}
	cmd.Flags().StringVar(&f.name, "session", "", "session name (default: the first)")
	cmd.Flags().IntVar(&f.items, "items", 0, "stop after this many items reach end-of-stream (0 = run to completion)")
	cmd.Flags().DurationVar(&f.itemDuration, "item-duration", 2*time.Second, "play time of each simulated item")
	cmd.Flags().IntVar(&f.failEvery, "fail-every", 0, "fail every Nth launch with a sink error (0 = never)")
	return cmd
}

func pickSession(sessions []*session.Session, name string) (*session.Session, error) {
	if name == "" {
		return sessions[0], nil
	}
	for _, s := range sessions {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no session named %q", name)
}

// simulate runs s on a SimEngine, printing one line per runtime event.
func simulate(ctx context.Context, w io.Writer, log *zap.Logger, s *session.Session, opts ctlscript.Options, f *simulateFlags) (sessionrt.Stats, error) {
	if f.itemDuration <= 0 {
		return sessionrt.Stats{}, errors.New("--item-duration must be positive")
	}
	eng := &sessionrt.SimEngine{ItemDuration: f.itemDuration, FailEvery: f.failEvery}
	rt := sessionrt.New(log, eng, sessionrt.ConfigFromSession(s, opts))

	start := time.Now()
	played := 0
	rt.OnEvent = func(e sessionrt.Event) {
		fmt.Fprintf(w, "%8s  %-9s %-8s %s\n", e.Time.Sub(start).Truncate(time.Millisecond), e.State, e.Kind, e.Detail)
		if e.Kind == "eos" {
			played++
			if f.items > 0 && played >= f.items {
				rt.Stop()
			}
		}
	}

	err := rt.Run(ctx)
	return rt.Stats(), err
}
