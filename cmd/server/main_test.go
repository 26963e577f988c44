package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"bank-analytics/internal/config"
)

func TestCurlHostForListenAddr(t *testing.T) {
	tests := []struct {
		listenAddr string
		want       string
	}{
		{":8080", "localhost:8080"},
		{"127.0.0.1:9000", "127.0.0.1:9000"},
		{"0.0.0.0:8080", "localhost:8080"},
		{"[::]:8080", "localhost:8080"},
		{"[::1]:8080", "[::1]:8080"},
		{" analytics.internal:80 ", "analytics.internal:80"},
		{"", "localhost:8080"},
		{"  ", "localhost:8080"},
		{"no-port", "no-port"},
	}

	for _, tt := range tests {
		t.Run(tt.listenAddr, func(t *testing.T) {
			assert.Equal(t, tt.want, curlHostForListenAddr(tt.listenAddr))
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	logger := newLogger(&config.Config{LogLevel: "warn"})
	ctx := context.Background()
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = newLogger(&config.Config{LogLevel: "debug", Env: "production"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
	_, isJSON := logger.Handler().(*slog.JSONHandler)
	assert.True(t, isJSON)
}
