package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VECTOR_STORE", "memory")
	t.Setenv("PLANNER_VERY_HIGH_ACTIVITY", "not-a-number")

	cfg := Load()
	assert.Equal(t, "memory", cfg.Vector.Store)
	assert.Equal(t, 50.0, cfg.Planner.VeryHighActivity)
	assert.Equal(t, 12, cfg.Planner.VeryHighWindowHours)
	assert.Equal(t, 30*time.Second, cfg.Persona.LockTTL)
	assert.Equal(t, 0.7, cfg.Chain.AnswerTemperature)
	assert.Equal(t, "INDEX_MESSAGE", cfg.Keys.IndexTopic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLANNER_BUSY_LIMIT_CAP", "60")
	t.Setenv("CHAIN_ANSWER_TEMPERATURE", "0.2")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("INDEX_NATS_ENABLED", "false")
	t.Setenv("GO_ENV", "production")

	cfg := Load()
	assert.Equal(t, 60, cfg.Planner.BusyLimitCap)
	assert.Equal(t, 0.2, cfg.Chain.AnswerTemperature)
	assert.Equal(t, 5*time.Second, cfg.App.RequestTimeout)
	assert.False(t, cfg.Index.NatsEnabled)
	assert.True(t, cfg.IsProduction())
}
