package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/unitfile"
)

// exportWorkers bounds concurrent session exports.
const exportWorkers = 4

func newExportCmd(g *globalFlags) *cobra.Command {
	var out, scriptDir, user string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write <slug>.py and its systemd unit for every session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := g.options(cmd)
			if err != nil {
				return err
			}
			sessions, err := loadValid(args[0])
			if err != nil {
				return err
			}
			written, err := export(cmd.Context(), sessions, opts, exportTarget{Dir: out, ScriptDir: scriptDir, User: user})
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&scriptDir, "script-dir", "", "directory the scripts are installed in (default: the absolute --out)")
	cmd.Flags().StringVar(&user, "user", unitfile.DefaultUser, "user the services run as")
	return cmd
}

type exportTarget struct {
	Dir       string
	ScriptDir string
	User      string
}

// export renders every session concurrently and returns the written paths
// in session order.
func export(ctx context.Context, sessions []*session.Session, opts ctlscript.Options, t exportTarget) ([]string, error) {
	dir, err := filepath.Abs(t.Dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	scriptDir := t.ScriptDir
	if scriptDir == "" {
		scriptDir = dir
	}

	seen := make(map[string]string, len(sessions))
	for _, s := range sessions {
		slug := s.Slug()
		if prev, dup := seen[slug]; dup {
			return nil, fmt.Errorf("sessions %q and %q share the file name %s", prev, s.Name, ctlscript.FileName(s))
		}
		seen[slug] = s.Name
	}

	written := make([][2]string, len(sessions))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(exportWorkers)
	for i, s := range sessions {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			script := filepath.Join(dir, ctlscript.FileName(s))
			if err := os.WriteFile(script, []byte(ctlscript.Generate(s, opts)), 0o755); err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}

			ucfg := unitfile.ForSession(s, scriptDir, t.User)
			text, err := unitfile.Render(ucfg)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}
			unit := filepath.Join(dir, ucfg.FileName())
			if err := os.WriteFile(unit, []byte(text), 0o644); err != nil {
				return fmt.Errorf("%s: %w", s.Name, err)
			}
			written[i] = [2]string{script, unit}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, 2*len(written))
	for _, w := range written {
		paths = append(paths, w[0], w[1])
	}
	return paths, nil
}
