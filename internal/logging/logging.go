// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application's zap logger.
//
// The TUI owns stdout, so logs go to a rotating JSON file managed by
// lumberjack. Tests and one-shot commands that do not want a file use Nop.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how much the application logs.
type Config struct {
	// File is the log file path. Empty disables logging.
	File string `toml:"file"`
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int `toml:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep.
	MaxBackups int `toml:"max_backups"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `toml:"max_age_days"`
	// Compress gzips rotated files.
	Compress bool `toml:"compress"`
}

// ParseLevel converts a level name into a zap level. Unknown names map to info.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a logger writing JSON lines to cfg.File with rotation.
// The returned cleanup flushes buffered entries and closes the file.
func New(cfg Config) (*zap.Logger, func(), error) {
	if cfg.File == "" {
		return Nop(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		LocalTime:  true,
		Compress:   cfg.Compress,
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(rotator),
		ParseLevel(cfg.Level),
	)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	cleanup := func() {
		_ = logger.Sync()
		_ = rotator.Close()
	}
	return logger, cleanup, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
