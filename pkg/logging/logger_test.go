// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel(t *testing.T) {
	t.Run("zero value is info", func(t *testing.T) {
		var l Level
		assert.Equal(t, LevelInfo, l)
	})

	t.Run("names", func(t *testing.T) {
		assert.Equal(t, "DEBUG", LevelDebug.String())
		assert.Equal(t, "INFO", LevelInfo.String())
		assert.Equal(t, "WARN", LevelWarn.String())
		assert.Equal(t, "ERROR", LevelError.String())
		assert.Equal(t, "UNKNOWN", Level(42).String())
	})

	t.Run("ordering", func(t *testing.T) {
		assert.Less(t, LevelDebug, LevelInfo)
		assert.Less(t, LevelInfo, LevelWarn)
		assert.Less(t, LevelWarn, LevelError)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warning ", LevelWarn},
		{"warn", LevelWarn},
		{"Error", LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("verbose")
	assert.ErrorContains(t, err, "verbose")
}

func TestNew_ConsoleFormat(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Output: &buf, Format: FormatJSON, Service: "sculpt"})
		logger.Info("opened", "path", "main.go")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "opened", rec["msg"])
		assert.Equal(t, "main.go", rec["path"])
		assert.Equal(t, "sculpt", rec["service"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Output: &buf, Format: FormatText})
		logger.Warn("slow save", "ms", 120)
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), `msg="slow save"`)
		assert.Contains(t, buf.String(), "ms=120")
	})

	t.Run("auto picks json for a buffer", func(t *testing.T) {
		var buf bytes.Buffer
		New(Config{Output: &buf}).Info("x")
		assert.True(t, strings.HasPrefix(buf.String(), "{"))
	})

	t.Run("quiet writes nothing", func(t *testing.T) {
		var buf bytes.Buffer
		New(Config{Output: &buf, Quiet: true}).Error("dropped")
		assert.Empty(t, buf.String())
	})
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewBufferedExporter()
	logger := New(Config{Output: &buf, Format: FormatText, Level: LevelWarn, Exporter: exporter})

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	assert.NotContains(t, out, "msg=d")
	assert.NotContains(t, out, "msg=i")
	assert.Contains(t, out, "msg=w")
	assert.Contains(t, out, "msg=e")

	entries := exporter.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, LevelWarn, entries[0].Level)
	assert.Equal(t, LevelError, entries[1].Level)
}

func TestNew_LogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := New(Config{LogDir: dir, Service: "sculptd", Quiet: true})
	logger.Info("to file", "n", 1)
	require.NoError(t, logger.Close())

	name := "sculptd_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Contains(t, string(data), `"service":"sculptd"`)
}

func TestNew_LogDirUnusable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "logs"), Output: &buf, Format: FormatText})
	assert.Contains(t, buf.String(), "file logging disabled")

	logger.Info("still works")
	assert.Contains(t, buf.String(), "still works")
	assert.NoError(t, logger.Close())
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewBufferedExporter()
	root := New(Config{Output: &buf, Format: FormatJSON, Exporter: exporter, Service: "sculpt"})
	child := root.With("request_id", "r-1")

	child.Info("handled", "status", 200)
	root.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"request_id":"r-1"`)
	assert.NotContains(t, lines[1], "request_id")

	entries := exporter.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, map[string]any{"request_id": "r-1", "status": 200}, entries[0].Attrs)
	assert.Equal(t, "sculpt", entries[0].Service)
	assert.Empty(t, entries[1].Attrs)
}

func TestLogger_Slog(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: FormatText})
	require.NotNil(t, logger.Slog())
	logger.Slog().Info("direct")
	assert.Contains(t, buf.String(), "msg=direct")
}

type brokenExporter struct{ *BufferedExporter }

func (b brokenExporter) Close() error { return errors.New("broken pipe") }

func TestLogger_Close(t *testing.T) {
	t.Run("no resources", func(t *testing.T) {
		assert.NoError(t, New(Config{Quiet: true}).Close())
	})

	t.Run("exporter error is reported", func(t *testing.T) {
		logger := New(Config{Quiet: true, Exporter: brokenExporter{NewBufferedExporter()}})
		err := logger.Close()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "close exporter")
		assert.Contains(t, err.Error(), "broken pipe")
	})

	t.Run("closed exporter stops accepting", func(t *testing.T) {
		exporter := NewBufferedExporter()
		logger := New(Config{Quiet: true, Exporter: exporter})
		logger.Info("before")
		require.NoError(t, logger.Close())
		logger.Info("after")
		assert.Len(t, exporter.Entries(), 1)
	})
}

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{Quiet: true, Exporter: exporter})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			child := logger.With("worker", i)
			for j := 0; j < 25; j++ {
				child.Info("tick", "j", j)
			}
		}(i)
	}
	wg.Wait()
	assert.Len(t, exporter.Entries(), 200)
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	logger := slog.New(h).With("doc", "a.go").WithGroup("edit")

	logger.Info("spliced", "start", 3)
	logger.Error("failed", "start", 4)

	assert.Contains(t, debugBuf.String(), "doc=a.go")
	assert.Contains(t, debugBuf.String(), "edit.start=3")
	assert.NotContains(t, errorBuf.String(), "spliced")
	assert.Contains(t, errorBuf.String(), "edit.start=4")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".sculpt/logs"), expandPath("~/.sculpt/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "rel/dir", expandPath("rel/dir"))
	assert.Equal(t, "~user/x", expandPath("~user/x"))
}

func TestArgsToMap(t *testing.T) {
	got := argsToMap([]any{"a", 1, slog.String("b", "two"), 7, "dangling"})
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, got)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
}
