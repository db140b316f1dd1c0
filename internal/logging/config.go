package logging

import (
	"fmt"
	"strings"
)

// Config holds logging-related configuration
type Config struct {
	Level       string `json:"level"`        // debug, info, warn, error
	File        string `json:"file"`         // empty means stdout only
	MaxSize     int    `json:"max_size"`     // MB
	MaxBackups  int    `json:"max_backups"`  // rotated files kept
	MaxAge      int    `json:"max_age"`      // days
	LogRequests bool   `json:"log_requests"` // one line per HTTP request
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		Level:      LevelInfo,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
	}
}

func (l *Config) Validate() error {
	if _, ok := levelRank[strings.ToLower(l.Level)]; !ok {
		return fmt.Errorf("invalid log level: %s", l.Level)
	}
	if l.File != "" && l.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive")
	}
	if l.MaxBackups < 0 {
		return fmt.Errorf("max_backups must be non-negative")
	}
	if l.MaxAge < 0 {
		return fmt.Errorf("max_age must be non-negative")
	}
	return nil
}
