package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/gst-architect/internal/config"
	"github.com/edirooss/gst-architect/pkg/ctlscript"
	"github.com/edirooss/gst-architect/pkg/fmtt"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath    string
	honorGeometry bool
	advance       string
	restart       ctlscript.RestartPolicy
	debug         bool
}

func newRootCmd() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "gst-architect",
		Short:         "Generate GStreamer pipelines and control scripts for streaming sessions",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `gst-architect turns session files (YAML or JSON, one session or
{sessions: [...]}) into gst-launch pipeline descriptions, Python control
scripts and systemd units.`,
	}
	root.SetVersionTemplate(fmt.Sprintf("gst-architect %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate))

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "server config file whose generator section is used as the base options")
	pf.BoolVar(&g.honorGeometry, "honor-geometry", false, "size caps from the session resolution and fps")
	pf.StringVar(&g.advance, "advance", "", "playlist advance mode: restart or reload")
	pf.DurationVar(&g.restart.Delay, "restart-delay", 0, "pause before the first restart (default 1s)")
	pf.DurationVar(&g.restart.MaxDelay, "restart-max-delay", 0, "backoff ceiling")
	pf.Float64Var(&g.restart.Multiplier, "restart-multiplier", 0, "backoff growth per consecutive restart")
	pf.IntVar(&g.restart.MaxAttempts, "restart-max-attempts", 0, "give up after this many consecutive restarts (0 = unlimited)")
	pf.DurationVar(&g.restart.StableAfter, "restart-stable-after", 0, "playing this long resets the attempt count")
	pf.BoolVar(&g.debug, "debug", false, "dump the full error chain on failure")

	root.AddCommand(
		newPipelineCmd(g),
		newScriptCmd(g),
		newUnitCmd(g),
		newLintCmd(g),
		newExportCmd(g),
		newWatchCmd(g),
		newSimulateCmd(g),
	)
	return root, g
}

// options resolves the generator options: the --config file first, then
// any flag the user set explicitly.
func (g *globalFlags) options(cmd *cobra.Command) (ctlscript.Options, error) {
	var opts ctlscript.Options
	if g.configPath != "" {
		cfg, err := config.LoadFile(g.configPath)
		if err != nil {
			return opts, err
		}
		opts = cfg.Generator
	}

	flags := cmd.Flags()
	if flags.Changed("honor-geometry") {
		opts.Pipeline.HonorGeometry = g.honorGeometry
	}
	if flags.Changed("advance") {
		mode, err := ctlscript.ParseAdvanceMode(g.advance)
		if err != nil {
			return opts, err
		}
		opts.Advance = mode
	}
	if flags.Changed("restart-delay") {
		opts.Restart.Delay = g.restart.Delay
	}
	if flags.Changed("restart-max-delay") {
		opts.Restart.MaxDelay = g.restart.MaxDelay
	}
	if flags.Changed("restart-multiplier") {
		opts.Restart.Multiplier = g.restart.Multiplier
	}
	if flags.Changed("restart-max-attempts") {
		opts.Restart.MaxAttempts = g.restart.MaxAttempts
	}
	if flags.Changed("restart-stable-after") {
		opts.Restart.StableAfter = g.restart.StableAfter
	}
	return opts, nil
}

func (g *globalFlags) logger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.TimeOnly)
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.InfoLevel)
	if g.debug {
		logConfig.Level.SetLevel(zap.DebugLevel)
	}
	return zap.Must(logConfig.Build())
}

func main() {
	root, g := newRootCmd()
	if err := root.Execute(); err != nil {
		if g.debug {
			fmtt.PrintErrChainDebug(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
