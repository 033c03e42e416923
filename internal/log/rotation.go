package log

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultRotationSizeMB  = 10
	defaultRotationBackups = 5
	defaultRotationAgeDays = 30
)

// RotationConfig mirrors the [logging] section of the config file. Zero
// values fall back to the defaults above.
type RotationConfig struct {
	File       string
	MaxSizeMB  int
	MaxFiles   int
	MaxAgeDays int
}

// NewRotatingWriter opens the log file, creating its directory with owner
// only permissions. Backups older than MaxAgeDays are pruned on rotation.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("log rotation: file path must not be empty")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultRotationSizeMB
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultRotationBackups
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = defaultRotationAgeDays
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o700); err != nil {
		return nil, fmt.Errorf("log rotation: create directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		MaxAge:     cfg.MaxAgeDays,
	}, nil
}
