package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "drop-oldest", cfg.Queue.Overflow)
	assert.Zero(t, cfg.Cursor.MinInterval)
}

func TestDefault_NoRoomOrEventCaps(t *testing.T) {
	cfg := Default()
	assert.Zero(t, cfg.Limits.MaxRooms, "rooms unlimited by default")
	assert.Zero(t, cfg.Limits.MaxRoomSize, "room size unlimited by default")
	assert.Zero(t, cfg.Limits.MessagesPerSecond, "cursor budget off by default")
}

func TestFromArgs_Precedence(t *testing.T) {
	path := writeFile(t, "relay.yaml", `
server:
  addr: ":7000"
  pong_wait: 30s
queue:
  size: 32
  overflow: drop-newest
cursor:
  min_interval: 20ms
log:
  level: warn
`)

	cfg, err := FromArgs(
		[]string{"--config", path, "--queue-size", "8"},
		env(map[string]string{"PORT": "9000", "LOG_LEVEL": "debug"}),
	)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.Server.PongWait, "file beats default")
	assert.Equal(t, 8, cfg.Queue.Size, "flag beats file")
	assert.Equal(t, "drop-newest", cfg.Queue.Overflow)
	assert.Equal(t, 20*time.Millisecond, cfg.Cursor.MinInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteWait, "untouched default survives")
}

func TestFromArgs_ConfigFromEnv(t *testing.T) {
	path := writeFile(t, "relay.yaml", "server:\n  allowed_origins: [\"https://class.example\"]\n")

	cfg, err := FromArgs(nil, env(map[string]string{"RELAY_CONFIG": path}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://class.example"}, cfg.Server.AllowedOrigins)
}

func TestFromArgs_Domains(t *testing.T) {
	cfg, err := FromArgs(nil, env(map[string]string{"DOMAINS": "https://a.example, https://b.example ,"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)

	cfg, err = FromArgs([]string{"--allowed-origins", "https://c.example"}, env(map[string]string{"DOMAINS": "https://a.example"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.example"}, cfg.Server.AllowedOrigins)
}

func TestFromArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  map[string]string
		file string
	}{
		{name: "unknown policy", args: []string{"--queue-overflow", "block"}},
		{name: "zero queue", args: []string{"--queue-size", "0"}},
		{name: "bad env size", env: map[string]string{"RELAY_QUEUE_SIZE": "lots"}},
		{name: "bad log format", args: []string{"--log-format", "xml"}},
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "unknown yaml key", file: "server:\n  adress: \":1\"\n"},
		{name: "missing file", args: []string{"--config", "/does/not/exist.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := tt.args
			if tt.file != "" {
				args = append(args, "--config", writeFile(t, "relay.yaml", tt.file))
			}
			_, err := FromArgs(args, env(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_Empty(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.LoadFile(writeFile(t, "empty.yaml", "")))
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvFiles(t *testing.T) {
	path := writeFile(t, ".env", "WHITEBOARD_RELAY_TEST_VAR=from-file\n")
	t.Setenv("WHITEBOARD_RELAY_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("WHITEBOARD_RELAY_TEST_VAR"))

	require.NoError(t, LoadEnvFiles(path))
	assert.Equal(t, "from-file", os.Getenv("WHITEBOARD_RELAY_TEST_VAR"))

	assert.NoError(t, LoadEnvFiles(filepath.Join(t.TempDir(), "missing.env")))
}
