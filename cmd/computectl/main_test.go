package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxnlabs/compute-channel/fixtures"
	"github.com/fxnlabs/compute-channel/internal/channel"
	"github.com/fxnlabs/compute-channel/internal/config"
	"github.com/fxnlabs/compute-channel/internal/tune"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("computectl", flag.ContinueOnError)
	set.String("config", "", "")
	set.Int("autotune-level", 0, "")
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(tune.EnvLevel, "")
	os.Unsetenv(tune.EnvLevel)

	cfg, err := loadConfig(newContext(t))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfig_FlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, fixtures.ConfigTemplate, 0644))

	cfg, err := loadConfig(newContext(t, "--config", path, "--autotune-level", "3"))
	require.NoError(t, err)
	assert.Equal(t, tune.LevelFull, cfg.Autotune.Level)
}

func TestLoadConfig_InvalidLevel(t *testing.T) {
	_, err := loadConfig(newContext(t, "--autotune-level", "9"))
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(newContext(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Error(t, err)
}

func TestScenarios(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Verbosity = "error"

	var ch *channel.Channel
	stop, err := startCompute(context.Background(), cfg, &ch)
	require.NoError(t, err)
	defer func() { require.NoError(t, stop()) }()

	for _, s := range scenarios {
		t.Run(s.name, func(t *testing.T) {
			assert.NoError(t, s.run(context.Background(), ch))
		})
	}
}
