package sweeper

import "time"

// Config controls the sweep interval and batch size.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	BatchSize   int
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Minute,
		BatchSize:   50,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	return c
}
