// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{" warn ", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), "ParseLevel(%q)", tc.in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ollamachat.log")

	logger, cleanup, err := New(Config{File: path, Level: "info", MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Info("stream finished", zap.String("cycle", "abc"))
	logger.Debug("dropped below level")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"stream finished"`)
	assert.Contains(t, out, `"cycle":"abc"`)
	assert.False(t, strings.Contains(out, "dropped below level"))
}

func TestNew_EmptyFileIsNop(t *testing.T) {
	logger, cleanup, err := New(Config{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("goes nowhere")
	cleanup()
}
