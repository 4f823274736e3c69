package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxnlabs/compute-channel/internal/tune"
	"gopkg.in/yaml.v3"
)

type LoggerConfig struct {
	Verbosity   string `yaml:"verbosity"`
	Development bool   `yaml:"development"`
}

// ChannelConfig tunes the compute channel queue and worker.
type ChannelConfig struct {
	// QueueCapacity bounds the number of commands waiting for the worker.
	// Enqueueing blocks while the queue is full.
	QueueCapacity int `yaml:"queueCapacity"`
	// LockOSThread pins the worker goroutine to one OS thread.
	LockOSThread bool `yaml:"lockOSThread"`
}

type AutotuneConfig struct {
	Level tune.Level `yaml:"level"`
}

type ServerConfig struct {
	Backend         string `yaml:"backend"`
	Alignment       uint64 `yaml:"alignment"`
	MemoryLimit     uint64 `yaml:"memoryLimit"` // 0 means unlimited
	MaxPendingTasks int    `yaml:"maxPendingTasks"`
	Architecture    int    `yaml:"architecture"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listenAddress"`
	Namespace     string `yaml:"namespace"`
}

type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Channel  ChannelConfig  `yaml:"channel"`
	Autotune AutotuneConfig `yaml:"autotune"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logger: LoggerConfig{
			Verbosity: "info",
		},
		Channel: ChannelConfig{
			QueueCapacity: 1024,
			LockOSThread:  true,
		},
		Autotune: AutotuneConfig{
			Level: tune.DefaultLevel,
		},
		Server: ServerConfig{
			Backend:         "cpu",
			Alignment:       32,
			MaxPendingTasks: 32,
			Architecture:    80,
		},
		Metrics: MetricsConfig{
			Namespace: "compute",
		},
	}
}

// LoadConfig reads a YAML file over the defaults, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ApplyEnv overrides the autotune level from tune.EnvLevel when it is set.
func (c *Config) ApplyEnv() error {
	if _, ok := os.LookupEnv(tune.EnvLevel); !ok {
		return nil
	}
	level, err := tune.LevelFromEnv()
	if err != nil {
		return err
	}
	c.Autotune.Level = level
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Channel.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("channel.queueCapacity must not be negative, got %d", c.Channel.QueueCapacity))
	}
	if err := c.Autotune.Level.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Backend == "" {
		errs = append(errs, errors.New("server.backend must be set"))
	}
	if a := c.Server.Alignment; a != 0 && a&(a-1) != 0 {
		errs = append(errs, fmt.Errorf("server.alignment must be a power of two, got %d", a))
	}
	if c.Server.MaxPendingTasks < 0 {
		errs = append(errs, fmt.Errorf("server.maxPendingTasks must not be negative, got %d", c.Server.MaxPendingTasks))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Tune returns the autotune configuration for kernel selection.
func (c *Config) Tune() tune.Config {
	return tune.Config{Level: c.Autotune.Level}
}
