// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/relay/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "relay.log")
	l, err := New(config.LogConfig{Level: "info", Format: "text", File: path})
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("request started", "job", "abc")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "request started")
	assert.Contains(t, string(data), "job=abc")
	assert.NotContains(t, string(data), "hidden")
}

func TestDefaultPathUsesConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RELAY_HOME", dir)
	l, err := New(config.LogConfig{Level: "info"})
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, filepath.Join(dir, "relay.log"), l.Path)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, config.LogConfig{Level: "debug", Format: "json"})
	l.Debug("tick", "n", 3)
	assert.Equal(t, "tick", gjson.Get(buf.String(), "msg").String())
	assert.Equal(t, int64(3), gjson.Get(buf.String(), "n").Int())
}
