package logging

import (
	"sync"
)

var (
	mu       sync.RWMutex
	instance *Logger
)

// InitLogger replaces the process-wide logger. Call once at startup.
func InitLogger(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		_ = instance.Close()
	}
	instance = logger
	return nil
}

// GetGlobalLogger returns the process-wide logger, creating a stdout logger
// at info level if InitLogger was never called.
func GetGlobalLogger() *Logger {
	mu.RLock()
	l := instance
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance, _ = NewLogger(DefaultConfig())
	}
	return instance
}

// CloseLogger flushes and closes the global logger's file, if any.
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		return nil
	}
	err := instance.Close()
	instance = nil
	return err
}
