package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/margin-sh/margin/internal/commands"
	"github.com/margin-sh/margin/internal/core/config"
	"github.com/margin-sh/margin/internal/core/eventbus"
	"github.com/margin-sh/margin/internal/core/logging"
	"github.com/margin-sh/margin/internal/stores"
	"github.com/margin-sh/margin/pkg/iojson"
	"github.com/margin-sh/margin/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "margin",
		Usage:     "Persist review sessions and plan comments for features",
		UsageText: "margin [global options] command [command options]",
		Description: `Margin stores review conversations alongside a feature's plan. Review
sessions hold threads of annotations anchored to files or plan lines,
plan comments gate approval, and the diff commands turn unified diff
text into structured per-file data that sessions can carry.

All command output is JSON on stdout; logs go to stderr or a file.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("MARGIN_LOG_LEVEL"),
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("MARGIN_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("MARGIN_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "root",
				Usage:       "path to the feature root directory",
				Sources:     cli.EnvVars("MARGIN_ROOT"),
				Value:       commands.DefaultRoot(),
				Destination: &flags.Root,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(flags.ConfigPath, flags.Root)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Command-line flags beat config file values.
			level := flags.LogLevel
			if level == "" {
				level = cfg.Log.Level
			}
			logFile := flags.LogFile
			if logFile == "" {
				logFile = cfg.Log.File
			}

			logger, closer, err := logutils.New(level, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			bus := eventbus.New(logging.Component("eventbus"))
			bus.Subscribe(func(event eventbus.Event, payload any) {
				log.Debug().Str("event", string(event)).Msg("event published")
			})

			flags.Sessions = stores.NewSessionStore(cfg.Root, cfg.Ignore, bus)
			flags.Plans = stores.NewPlanStore(cfg.Root, bus)

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewSessionCmd(flags).Register(app)
	app = commands.NewThreadCmd(flags).Register(app)
	app = commands.NewPlanCmd(flags).Register(app)
	app = commands.NewDiffCmd(flags).Register(app)

	if err := app.Run(ctx, os.Args); err != nil {
		_ = iojson.WriteError(err.Error(), nil)
		os.Exit(1)
	}
}
