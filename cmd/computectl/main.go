package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fxnlabs/compute-channel/internal/app"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const stopTimeout = 30 * time.Second

func main() {
	var cfg *config.Config

	cliApp := &cli.App{
		Name:  "computectl",
		Usage: "Drive a compute server through its command channel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Load configuration from `FILE`",
				EnvVars: []string{"COMPUTECTL_CONFIG"},
			},
			&cli.IntFlag{
				Name:  "autotune-level",
				Usage: fmt.Sprintf("Autotune level 0-3, overrides the config file and %s", tune.EnvLevel),
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
		Commands: []*cli.Command{
			infoCommand(&cfg),
			benchCommand(&cfg),
			scenarioCommand(&cfg),
			configCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}

	if c.IsSet("autotune-level") {
		cfg.Autotune.Level = tune.Level(c.Int("autotune-level"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startCompute builds and starts the compute application, filling targets
// the way fx.Populate does. The returned function stops it.
func startCompute(ctx context.Context, cfg *config.Config, targets ...any) (func() error, error) {
	a := fx.New(
		fx.Supply(cfg),
		app.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			l := &fxevent.ZapLogger{Logger: log.Named("fx")}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Populate(targets...),
	)
	if err := a.Start(ctx); err != nil {
		return nil, err
	}

	return func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		return a.Stop(stopCtx)
	}, nil
}
