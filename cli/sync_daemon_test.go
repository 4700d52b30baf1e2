// ABOUTME: Unit tests for sync daemon mode
// ABOUTME: Tests interval parsing, service selection and loop shutdown
package cli

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"all services", "all", []string{"contacts", "calendar", "gmail"}},
		{"single service", "contacts", []string{"contacts"}},
		{"multiple services", "contacts,calendar", []string{"contacts", "calendar"}},
		{"spaces around commas", "contacts, calendar, gmail", []string{"contacts", "calendar", "gmail"}},
		{"invalid service ignored", "contacts,invalid,calendar", []string{"contacts", "calendar"}},
		{"all invalid services", "invalid,unknown", []string{}},
		{"empty string", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseServices(tt.input))
		})
	}
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		interval string
		valid    bool
	}{
		{"1h", true},
		{"15m", true},
		{"5m", true},
		{"24h", true},
		{"4m", false},
		{"1m", false},
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.interval, func(t *testing.T) {
			d, err := parseInterval(tt.interval)
			if tt.valid {
				require.NoError(t, err)
				assert.GreaterOrEqual(t, d, minDaemonInterval)
			} else {
				assert.ErrorIs(t, err, ErrUsage)
			}
		})
	}
}

func TestFormatTimeSince(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		time     time.Time
		expected string
	}{
		{"just now (30 seconds)", now.Add(-30 * time.Second), "just now"},
		{"1 minute ago", now.Add(-1 * time.Minute), "1 minute ago"},
		{"5 minutes ago", now.Add(-5 * time.Minute), "5 minutes ago"},
		{"1 hour ago", now.Add(-1 * time.Hour), "1 hour ago"},
		{"3 hours ago", now.Add(-3 * time.Hour), "3 hours ago"},
		{"1 day ago", now.Add(-24 * time.Hour), "1 day ago"},
		{"5 days ago", now.Add(-5 * 24 * time.Hour), "5 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatTimeSince(tt.time))
		})
	}
}

func TestDaemonLoopStopsOnCancel(t *testing.T) {
	isolateXDG(t)
	app, out := setupTestCLI(t)
	app.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- app.daemonLoop(ctx, []string{serviceContacts}, time.Hour) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Sync daemon stopped")
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down within timeout")
	}
}

func TestSyncDaemonCommandValidatesFlags(t *testing.T) {
	app, _ := setupTestCLI(t)
	assert.ErrorIs(t, SyncDaemonCommand(app, []string{"--interval", "1m"}), ErrUsage)
	assert.ErrorIs(t, SyncDaemonCommand(app, []string{"--services", "fax"}), ErrUsage)
}
