package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/fmtt"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
	"github.com/edirooss/gst-architect/pkg/unitfile"
)

const watchDebounce = 200 * time.Millisecond

func newWatchCmd(g *globalFlags) *cobra.Command {
	var out, user string
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Regenerate whenever the session file changes",
		Long: `watch prints every session's pipeline each time the file is written.
With --out it exports scripts and units into that directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options(cmd)
			if err != nil {
				return err
			}
			log := g.logger().Named("watch")
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			path := args[0]
			regen := func() {
				if err := regenerate(ctx, cmd.OutOrStdout(), path, opts, out, user); err != nil {
					log.Error("regenerate failed", zap.String("file", path), zap.Error(err))
					if g.debug {
						fmtt.PrintErrChain(cmd.ErrOrStderr(), err)
					}
					return
				}
				log.Info("regenerated", zap.String("file", path))
			}
			regen()
			return watchFile(ctx, log, path, watchDebounce, regen)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "export into this directory instead of printing pipelines")
	cmd.Flags().StringVar(&user, "user", unitfile.DefaultUser, "user the exported services run as")
	return cmd
}

func regenerate(ctx context.Context, w io.Writer, path string, opts ctlscript.Options, out, user string) error {
	sessions, err := loadValid(path)
	if err != nil {
		return err
	}
	if out != "" {
		_, err := export(ctx, sessions, opts, exportTarget{Dir: out, User: user})
		return err
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "# %s (%s)\n%s\n", s.Name, time.Now().Format(time.TimeOnly), gstpipeline.Generate(s, opts.Pipeline))
	}
	return nil
}

// watchFile calls onChange after writes to path settle for debounce. The
// parent directory is watched so editors that replace the file by rename
// are still seen. Returns nil when ctx is done.
func watchFile(ctx context.Context, log *zap.Logger, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Debounce: reset timer on each event.
			timer.Reset(debounce)

		case <-timer.C:
			onChange()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", zap.Error(err))
		}
	}
}
