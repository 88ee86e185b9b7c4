package config

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "DB_DRIVER", "AT_RISK_THRESHOLD", "GUEST_SESSION_TTL", "ATTEMPT_SWEEP_INTERVAL", "EVENTS_ENABLED", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 50.0, cfg.AtRiskThreshold)
	assert.Equal(t, 2*time.Hour, cfg.GuestSessionTTL)
	assert.Equal(t, time.Minute, cfg.AttemptSweepInterval)
	assert.True(t, cfg.Events.Enabled)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("AT_RISK_THRESHOLD", "65.5")
	t.Setenv("GUEST_SESSION_TTL", "30m")
	t.Setenv("ATTEMPT_SWEEP_INTERVAL", "0s")
	t.Setenv("EVENTS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 65.5, cfg.AtRiskThreshold)
	assert.Equal(t, 30*time.Minute, cfg.GuestSessionTTL)
	assert.Zero(t, cfg.AttemptSweepInterval)
	assert.False(t, cfg.Events.Enabled)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		key   string
		value string
	}{
		{"AT_RISK_THRESHOLD", "150"},
		{"AT_RISK_THRESHOLD", "NaN"},
		{"AT_RISK_THRESHOLD", "+Inf"},
		{"GUEST_SESSION_TTL", "soon"},
		{"DB_DRIVER", "sqlite"},
		{"EVENTS_ENABLED", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestEventConfig(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := EventConfig{KafkaBrokers: "k1:9092, k2:9092,"}
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.GetKafkaBrokers())

	disabled := EventConfig{Enabled: false, Publisher: "kafka"}
	publisher, err := disabled.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.DiscardEventPublisher{}, publisher)

	unknown := EventConfig{Enabled: true, Publisher: "carrier-pigeon"}
	publisher, err = unknown.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.DiscardEventPublisher{}, publisher)

	inProcess := EventConfig{Enabled: true, Publisher: "gochannel", AttemptTopic: "t"}
	publisher, err = inProcess.CreateEventPublisher(logger)
	require.NoError(t, err)
	assert.IsType(t, &events.WatermillEventPublisher{}, publisher)
	assert.NoError(t, publisher.Close())
}
