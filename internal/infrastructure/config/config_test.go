package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.ExpiryInterval)
	assert.Equal(t, 24*time.Hour, cfg.Reservation.DefaultExpiration)
	assert.Equal(t, float64(2), cfg.LateCharge.MonthlyRatePercent)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.LateCharge.MonthlyRatePercent = 3.5
	cfg.App.Port = "9090"
	applyDefaults(cfg)

	assert.Equal(t, 3.5, cfg.LateCharge.MonthlyRatePercent)
	assert.Equal(t, "9090", cfg.App.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		require.NoError(t, base().validate())
	})

	t.Run("rejects a negative late charge rate", func(t *testing.T) {
		cfg := base()
		cfg.LateCharge.MonthlyRatePercent = -1
		assert.Error(t, cfg.validate())
	})

	t.Run("rejects an out of range late charge hour", func(t *testing.T) {
		cfg := base()
		cfg.Scheduler.LateChargeHour = 24
		assert.Error(t, cfg.validate())
	})

	t.Run("production requires a password and ssl", func(t *testing.T) {
		cfg := base()
		cfg.App.Env = "production"
		assert.Error(t, cfg.validate())

		cfg.Database.Password = "secret"
		assert.Error(t, cfg.validate())

		cfg.Database.SSLMode = "require"
		assert.NoError(t, cfg.validate())
	})
}
