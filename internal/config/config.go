package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigid2d/internal/island"
	"github.com/san-kum/rigid2d/internal/pipeline"
)

const (
	DefaultDt                 = 1.0 / 60.0
	DefaultGravityY           = -9.81
	DefaultVelocityIterations = 8
	DefaultPositionIterations = 3
	DefaultWorkers            = 4
	DefaultDuration           = 10.0
)

type Config struct {
	Scene    string  `yaml:"scene"`
	Dt       float64 `yaml:"dt"`
	Duration float64 `yaml:"duration"`
	Seed     int64   `yaml:"seed"`

	Gravity [2]float64 `yaml:"gravity"`

	VelocityIterations int `yaml:"velocity_iterations"`
	PositionIterations int `yaml:"position_iterations"`

	CCD           bool `yaml:"ccd"`
	Deterministic bool `yaml:"deterministic"`
	Parallel      bool `yaml:"parallel"`
	Workers       int  `yaml:"workers"`

	WarmStarting       bool    `yaml:"warm_starting"`
	WarmStartTolerance float64 `yaml:"warm_start_tolerance"`

	Sleep SleepConfig `yaml:"sleep"`
}

type SleepConfig struct {
	LinearTolerance  float64 `yaml:"linear_tolerance"`
	AngularTolerance float64 `yaml:"angular_tolerance"`
	TimeToSleep      float64 `yaml:"time_to_sleep"`
}

func DefaultConfig() *Config {
	sleep := island.DefaultSleepConfig()
	return &Config{
		Scene:              "stack",
		Dt:                 DefaultDt,
		Duration:           DefaultDuration,
		Gravity:            [2]float64{0, DefaultGravityY},
		VelocityIterations: DefaultVelocityIterations,
		PositionIterations: DefaultPositionIterations,
		CCD:                true,
		Parallel:           true,
		Workers:            DefaultWorkers,
		WarmStarting:       true,
		WarmStartTolerance: 0.02,
		Sleep: SleepConfig{
			LinearTolerance:  sleep.LinearTolerance,
			AngularTolerance: sleep.AngularTolerance,
			TimeToSleep:      sleep.TimeToSleep,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// StepConfig converts the file-level options into the pipeline's per-step
// config.
func (c *Config) StepConfig() pipeline.Config {
	sleep := island.SleepConfig{
		LinearTolerance:  c.Sleep.LinearTolerance,
		AngularTolerance: c.Sleep.AngularTolerance,
		TimeToSleep:      c.Sleep.TimeToSleep,
	}
	if sleep == (island.SleepConfig{}) {
		sleep = island.DefaultSleepConfig()
	}
	return pipeline.Config{
		VelocityIterations: c.VelocityIterations,
		PositionIterations: c.PositionIterations,
		CCD:                c.CCD,
		Deterministic:      c.Deterministic,
		Parallel:           c.Parallel,
		Workers:            c.Workers,
		WarmStarting:       c.WarmStarting,
		WarmStartTolerance: c.WarmStartTolerance,
		Sleep:              sleep,
	}
}
