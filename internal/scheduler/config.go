// Package scheduler fires one-shot task reminders at their due instant.
package scheduler

import (
	"fmt"
	"time"
)

// Config defines the scheduler configuration.
type Config struct {
	// Timezone is the IANA zone reminder times are interpreted in. Empty or
	// "Local" uses the process time zone.
	Timezone string `yaml:"timezone"`
	// ResyncInterval re-reads active reminders from the store periodically.
	// Zero disables the loop; a resync still happens once at startup.
	ResyncInterval time.Duration `yaml:"resync_interval"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:       "Local",
		ResyncInterval: 0,
	}
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
