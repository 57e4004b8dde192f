package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/fantabid/go/internal/auction"
	"github.com/mcdev12/fantabid/go/internal/compliance"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/responsetimer"
	"github.com/mcdev12/fantabid/go/internal/scheduler"
	"gopkg.in/yaml.v3"
)

// Config holds the engine tunables read from CONFIG_PATH.
type Config struct {
	Scheduler struct {
		Interval  time.Duration `yaml:"interval"`
		Workers   int           `yaml:"workers"`
		BatchSize int           `yaml:"batch_size"`
	} `yaml:"scheduler"`
	Timers struct {
		ResponseWindow  time.Duration `yaml:"response_window"`
		AbandonCooldown time.Duration `yaml:"abandon_cooldown"`
	} `yaml:"timers"`
	Compliance struct {
		PenaltyAmount          int           `yaml:"penalty_amount"`
		MaxPenaltiesPerCycle   int           `yaml:"max_penalties_per_cycle"`
		MaxTotalPenaltyCredits int           `yaml:"max_total_penalty_credits"`
		GracePeriod            time.Duration `yaml:"grace_period"`
		PenaltyInterval        time.Duration `yaml:"penalty_interval"`
	} `yaml:"compliance"`
	Notifications struct {
		DedupeWindow time.Duration `yaml:"dedupe_window"`
		DedupeSize   int           `yaml:"dedupe_size"`
		// With Outbox off events are only logged.
		Outbox bool `yaml:"outbox"`
	} `yaml:"notifications"`
	BidLimits struct {
		// CacheSize bounds the tracked user windows. Zero disables the caps.
		CacheSize int      `yaml:"cache_size"`
		Manual    bidLimit `yaml:"manual"`
		Auto      bidLimit `yaml:"auto"`
		Quick     bidLimit `yaml:"quick"`
	} `yaml:"bid_limits"`
}

type bidLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

func defaultConfig() *Config {
	var c Config
	sc := scheduler.DefaultConfig()
	c.Scheduler.Interval = sc.Interval
	c.Scheduler.Workers = sc.Workers
	c.Scheduler.BatchSize = sc.BatchSize

	tc := responsetimer.DefaultConfig()
	c.Timers.ResponseWindow = tc.ResponseWindow
	c.Timers.AbandonCooldown = tc.AbandonCooldown

	cc := compliance.DefaultConfig()
	c.Compliance.PenaltyAmount = cc.PenaltyAmount
	c.Compliance.MaxPenaltiesPerCycle = cc.MaxPenaltiesPerCycle
	c.Compliance.MaxTotalPenaltyCredits = cc.MaxTotalPenaltyCredits
	c.Compliance.GracePeriod = cc.GracePeriod
	c.Compliance.PenaltyInterval = cc.PenaltyInterval

	c.Notifications.DedupeWindow = 500 * time.Millisecond
	c.Notifications.DedupeSize = 1024
	c.Notifications.Outbox = true

	bl := auction.DefaultBidLimits()
	c.BidLimits.CacheSize = 10000
	c.BidLimits.Manual = bidLimit(bl[models.BidTypeManual])
	c.BidLimits.Auto = bidLimit(bl[models.BidTypeAuto])
	c.BidLimits.Quick = bidLimit(bl[models.BidTypeQuick])
	return &c
}

// loadConfig overlays the YAML file at path on the defaults. A missing file
// leaves the defaults untouched.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	switch {
	case c.Compliance.PenaltyAmount <= 0:
		return errors.New("compliance.penalty_amount must be positive")
	case c.Compliance.PenaltyInterval <= 0:
		return errors.New("compliance.penalty_interval must be positive")
	case c.Timers.ResponseWindow <= 0:
		return errors.New("timers.response_window must be positive")
	}
	return nil
}

func (c *Config) schedulerConfig() scheduler.Config {
	return scheduler.Config{
		Interval:  c.Scheduler.Interval,
		Workers:   c.Scheduler.Workers,
		BatchSize: c.Scheduler.BatchSize,
	}
}

func (c *Config) timerConfig() responsetimer.Config {
	return responsetimer.Config{
		ResponseWindow:  c.Timers.ResponseWindow,
		AbandonCooldown: c.Timers.AbandonCooldown,
	}
}

func (c *Config) complianceConfig() compliance.Config {
	return compliance.Config{
		PenaltyAmount:          c.Compliance.PenaltyAmount,
		MaxPenaltiesPerCycle:   c.Compliance.MaxPenaltiesPerCycle,
		MaxTotalPenaltyCredits: c.Compliance.MaxTotalPenaltyCredits,
		GracePeriod:            c.Compliance.GracePeriod,
		PenaltyInterval:        c.Compliance.PenaltyInterval,
	}
}

func (c *Config) bidLimits() map[models.BidType]auction.BidLimit {
	return map[models.BidType]auction.BidLimit{
		models.BidTypeManual: auction.BidLimit(c.BidLimits.Manual),
		models.BidTypeAuto:   auction.BidLimit(c.BidLimits.Auto),
		models.BidTypeQuick:  auction.BidLimit(c.BidLimits.Quick),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// applyEnv lets the environment override the file for the knobs most often
// changed per deployment.
func (c *Config) applyEnv() {
	c.Scheduler.Interval = getEnvAsDuration("SWEEP_INTERVAL", c.Scheduler.Interval)
	c.Scheduler.Workers = getEnvAsInt("SWEEP_WORKERS", c.Scheduler.Workers)
	c.Timers.ResponseWindow = getEnvAsDuration("RESPONSE_WINDOW", c.Timers.ResponseWindow)
	c.Compliance.GracePeriod = getEnvAsDuration("COMPLIANCE_GRACE", c.Compliance.GracePeriod)
}
