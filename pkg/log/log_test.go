package log_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/presubmit/pkg/log"
)

func TestGetLevel(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		"error":         {input: "error", want: slog.LevelError},
		"warn":          {input: "warn", want: slog.LevelWarn},
		"warning alias": {input: "warning", want: slog.LevelWarn},
		"info":          {input: "info", want: slog.LevelInfo},
		"debug upper":   {input: "DEBUG", want: slog.LevelDebug},
		"unknown":       {input: "verbose", wantErr: true},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := log.GetLevel(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrUnknownLogLevel)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetFormat(t *testing.T) {
	t.Parallel()

	for _, f := range log.AllFormats {
		got, err := log.GetFormat(f)
		require.NoError(t, err)
		assert.Equal(t, log.Format(f), got)
	}

	_, err := log.GetFormat("xml")
	require.ErrorIs(t, err, log.ErrUnknownLogFormat)
}

func TestCreateHandlerWithStrings(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		level   string
		format  string
		wantErr bool
	}{
		"json":           {level: "info", format: "json"},
		"logfmt":         {level: "debug", format: "logfmt"},
		"text":           {level: "warn", format: "text"},
		"bad level":      {level: "loud", format: "json", wantErr: true},
		"bad format":     {level: "info", format: "yaml", wantErr: true},
		"upper case":     {level: "INFO", format: "JSON"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h, err := log.CreateHandlerWithStrings(&bytes.Buffer{}, tc.level, tc.format)
			if tc.wantErr {
				require.ErrorIs(t, err, log.ErrInvalidArgument)
				assert.Nil(t, h)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, h)
		})
	}
}

func TestJSONHandlerWritesRecords(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	h, err := log.CreateHandlerWithStrings(buf, "info", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("visible", slog.String("path", "./Foo.java"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"visible"`)
	assert.Contains(t, out, `"path":"./Foo.java"`)
}

func TestWithContext(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := log.NewContext(context.Background(), logger)

	assert.Same(t, logger, log.WithContext(ctx))
	assert.NotNil(t, log.WithContext(context.Background()))
}
