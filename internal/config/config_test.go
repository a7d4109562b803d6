package config

import (
	"os"
	"path/filepath"
	"testing"

	"localpro/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfig(t, `
app:
  name: localpro
database:
  path: /tmp/localpro.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localpro", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, 10, cfg.Billing.TimeoutSeconds)
	assert.Equal(t, models.DefaultMaxAdvanceDays, cfg.Booking.MaxAdvanceDays)
	assert.Equal(t, models.DefaultPageSize, cfg.Booking.PageSize)
	assert.Equal(t, "03:00", cfg.Booking.ReconcileTime)
	assert.Equal(t, "notifications:events", cfg.Redis.EventQueueKey)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/expanded.db")
	t.Setenv("TEST_API_KEY", "secret-key")

	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
api:
  enabled: true
  auth:
    api_keys:
      - key: ${TEST_API_KEY}
        name: ops
        permissions: ["read:bookings"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/expanded.db", cfg.Database.Path)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "secret-key", cfg.API.Auth.APIKeys[0].Key)
	assert.True(t, cfg.API.Auth.Enabled, "enabling the API forces auth on")
}

func TestLoad_MissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: localpro
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_SheetsRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/localpro.db
sheets:
  enabled: true
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateSlots(t *testing.T) {
	good := []models.AvailabilitySlot{
		{ProviderID: 1, DayOfWeek: 1, Start: 540, End: 1020, MaxBookings: 2},
	}
	assert.NoError(t, ValidateSlots(good))

	noProvider := []models.AvailabilitySlot{
		{DayOfWeek: 1, Start: 540, End: 1020, MaxBookings: 2},
	}
	assert.Error(t, ValidateSlots(noProvider))

	inverted := []models.AvailabilitySlot{
		{ProviderID: 1, DayOfWeek: 1, Start: 1020, End: 540, MaxBookings: 2},
	}
	assert.Error(t, ValidateSlots(inverted))
}
