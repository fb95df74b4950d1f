package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edirooss/gst-architect/internal/domain/session"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/gstpipeline"
	"github.com/edirooss/gst-architect/pkg/unitfile"
)

func newPipelineCmd(g *globalFlags) *cobra.Command {
	var launch bool
	cmd := &cobra.Command{
		Use:   "pipeline <file>",
		Short: "Print the pipeline description of each session",
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
			return writeEach(cmd.OutOrStdout(), sessions, func(s *session.Session) (string, error) {
				if launch {
					return gstpipeline.BuildLaunchString(s, opts.Pipeline), nil
				}
				return gstpipeline.Generate(s, opts.Pipeline), nil
			})
		},
	}
	cmd.Flags().BoolVar(&launch, "launch", false, "print a shell-ready gst-launch-1.0 command line instead")
	return cmd
}

func newScriptCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file>",
		Short: "Print the Python control script of each session",
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
			return writeEach(cmd.OutOrStdout(), sessions, func(s *session.Session) (string, error) {
				return ctlscript.Generate(s, opts), nil
			})
		},
	}
}

func newUnitCmd(_ *globalFlags) *cobra.Command {
	var scriptPath, user string
	cmd := &cobra.Command{
		Use:   "unit <file>",
		Short: "Print a systemd unit that keeps each session's script running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := loadValid(args[0])
			if err != nil {
				return err
			}
			if len(sessions) > 1 && strings.HasSuffix(scriptPath, ".py") {
				return errors.New("--script-path names a single file but the input holds several sessions")
			}
			return writeEach(cmd.OutOrStdout(), sessions, func(s *session.Session) (string, error) {
				return unitfile.Render(unitConfig(s, scriptPath, user))
			})
		},
	}
	cmd.Flags().StringVar(&scriptPath, "script-path", unitfile.DefaultScriptDir, "script file (*.py) or the directory holding <slug>.py")
	cmd.Flags().StringVar(&user, "user", unitfile.DefaultUser, "user the service runs as")
	return cmd
}

// unitConfig treats a *.py scriptPath as the script itself and anything
// else as its directory.
func unitConfig(s *session.Session, scriptPath, user string) unitfile.Config {
	if strings.HasSuffix(scriptPath, ".py") {
		cfg := unitfile.ForSession(s, "", user)
		cfg.ScriptPath = scriptPath
		return cfg
	}
	return unitfile.ForSession(s, scriptPath, user)
}

func newLintCmd(_ *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Report validation errors and runtime warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := loadSessions(args[0])
			if err != nil {
				return err
			}
			invalid := lint(cmd.OutOrStdout(), sessions)
			if invalid > 0 {
				return fmt.Errorf("%d of %d sessions invalid", invalid, len(sessions))
			}
			return nil
		},
	}
}

// lint writes one line per finding and returns the number of invalid
// sessions.
func lint(w io.Writer, sessions []*session.Session) int {
	invalid := 0
	for _, s := range sessions {
		if err := s.Validate(); err != nil {
			invalid++
			fmt.Fprintf(w, "%s: error: %v\n", s.Name, err)
			continue
		}
		warns := s.Lint()
		for _, msg := range warns {
			fmt.Fprintf(w, "%s: warning: %s\n", s.Name, msg)
		}
		if len(warns) == 0 {
			fmt.Fprintf(w, "%s: ok\n", s.Name)
		}
	}
	return invalid
}

// writeEach writes render(s) for every session. With more than one session
// each block is headed by a "# <name>" line.
func writeEach(w io.Writer, sessions []*session.Session, render func(*session.Session) (string, error)) error {
	for i, s := range sessions {
		text, err := render(s)
		if err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
		if len(sessions) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "# %s\n", s.Name)
		}
		fmt.Fprint(w, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(w)
		}
	}
	return nil
}
