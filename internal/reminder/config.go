// Package reminder runs the periodic deadline sweep.
package reminder

import "time"

// Config defines the sweep configuration.
type Config struct {
	// Enabled turns the background loop on.
	Enabled bool `yaml:"enabled"`
	// Interval is the time between sweeps.
	Interval time.Duration `yaml:"interval"`
	// SendTimeout bounds each reminder delivery.
	SendTimeout time.Duration `yaml:"send_timeout"`
}

// DefaultConfig returns the default sweep configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Interval:    3 * time.Hour,
		SendTimeout: 10 * time.Second,
	}
}
