package appconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "port": 8080,
  "env": "production",
  "api-keys": ["key1", "key2"],
  "exempt-api-keys": ["internal"],
  "rate-limit": 50,
  "verbose": true,
  "log-format": "text",
  "data-path": "/data/bundle",
  "db-path": "/data/timetable.db",
  "timezone": "Europe/Lisbon",
  "reload-interval": "PT6H"
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	app := cfg.ToAppConfig()
	assert.Equal(t, 8080, app.Port)
	assert.Equal(t, Production, app.Env)
	assert.Equal(t, []string{"key1", "key2"}, app.ApiKeys)
	assert.Equal(t, []string{"internal"}, app.ExemptApiKeys)
	assert.Equal(t, 50, app.RateLimit)
	assert.Equal(t, "text", app.LogFormat)

	feed := cfg.ToFeedConfigData()
	assert.Equal(t, "/data/bundle", feed.DataPath)
	assert.Equal(t, "/data/timetable.db", feed.DBPath)
	assert.Equal(t, "Europe/Lisbon", feed.Timezone)
	assert.Equal(t, "PT6H", feed.ReloadInterval)
	assert.Equal(t, Production, feed.Env)
	assert.True(t, feed.Verbose)
}

func TestLoadFromFileYAMLDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", "data-path: ./testdata/bundle\nenv: test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	app := cfg.ToAppConfig()
	assert.Equal(t, 4000, app.Port)
	assert.Equal(t, Test, app.Env)
	assert.Equal(t, 100, app.RateLimit)
	assert.Equal(t, "json", app.LogFormat)
	assert.Equal(t, []string{}, app.ApiKeys)
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"malformed json", "bad.json", `{"port": `, "failed to parse JSON config"},
		{"malformed yaml", "bad.yml", "port: [1\n", "failed to parse YAML config"},
		{"missing data path", "nodata.json", `{"port": 4000}`, "invalid configuration"},
		{"bad env", "env.json", `{"data-path": "x", "env": "staging"}`, "invalid configuration"},
		{"bad port", "port.json", `{"data-path": "x", "port": 70000}`, "invalid configuration"},
		{"bad timezone", "tz.json", `{"data-path": "x", "timezone": "Mars/Olympus"}`, "invalid configuration"},
		{"empty api key", "keys.json", `{"data-path": "x", "api-keys": ["a", ""]}`, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tt.file, tt.content))
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Nil(t, cfg)
		assert.ErrorContains(t, err, "failed to stat config file")
	})
}

func TestEnvFlagToEnvironment(t *testing.T) {
	assert.Equal(t, Production, EnvFlagToEnvironment("production"))
	assert.Equal(t, Production, EnvFlagToEnvironment(" PROD "))
	assert.Equal(t, Test, EnvFlagToEnvironment("test"))
	assert.Equal(t, Development, EnvFlagToEnvironment("anything"))
	assert.Equal(t, "production", Production.String())
}
