// Package config loads relay settings.
//
// Values are layered: built-in defaults, then an optional YAML file
// (--config or RELAY_CONFIG), then environment variables, then
// command-line flags. Later layers win.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"whiteboard-relay/internal/connection"
)

// Config is the full relay configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Limits LimitsConfig `yaml:"limits"`
	Queue  QueueConfig  `yaml:"queue"`
	Cursor CursorConfig `yaml:"cursor"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig configures the listener and websocket sockets.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8080
	Addr string `yaml:"addr"`

	// AllowedOrigins are the browser origins accepted on upgrade.
	// Empty accepts any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// ReadLimit is the hard frame size limit; larger frames close the socket.
	// Default: 1 MiB
	ReadLimit int64 `yaml:"read_limit"`

	// PongWait is how long a socket may stay silent before it is dropped.
	// Default: 60s
	PongWait time.Duration `yaml:"pong_wait"`

	// WriteWait bounds a single frame write.
	// Default: 10s
	WriteWait time.Duration `yaml:"write_wait"`
}

// LimitsConfig bounds what one client or the whole relay may consume.
type LimitsConfig struct {
	// MessagesPerSecond and Burst bound inbound cursor samples per
	// connection. Zero disables the limit.
	MessagesPerSecond float64 `yaml:"messages_per_second"`
	Burst             int     `yaml:"burst"`

	// MaxMessageSize drops larger events without closing the socket.
	MaxMessageSize int `yaml:"max_message_size"`

	// ConnectionsPerMinute and ConnectionBurst bound handshakes per client IP.
	ConnectionsPerMinute float64 `yaml:"connections_per_minute"`
	ConnectionBurst      int     `yaml:"connection_burst"`

	// MaxRooms and MaxRoomSize cap the registry; zero is unlimited.
	MaxRooms    int `yaml:"max_rooms"`
	MaxRoomSize int `yaml:"max_room_size"`
}

// QueueConfig configures each connection's outbound queue.
type QueueConfig struct {
	Size int `yaml:"size"`

	// Overflow is one of drop-oldest, drop-newest, disconnect.
	Overflow string `yaml:"overflow"`

	// CoalesceCursors replaces a pending cursor sample with a newer one.
	CoalesceCursors bool `yaml:"coalesce_cursors"`
}

// CursorConfig configures cursor relaying.
type CursorConfig struct {
	// MinInterval throttles cursor samples per connection; 0 relays every sample.
	MinInterval time.Duration `yaml:"min_interval"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used before any file, env or flag.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:      ":8080",
			ReadLimit: 1 << 20,
			PongWait:  60 * time.Second,
			WriteWait: 10 * time.Second,
		},
		Limits: LimitsConfig{
			Burst:                20,
			MaxMessageSize:       512 << 10,
			ConnectionsPerMinute: 10,
			ConnectionBurst:      5,
		},
		Queue: QueueConfig{
			Size:            256,
			Overflow:        string(connection.DropOldest),
			CoalesceCursors: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadFile merges a YAML file over cfg. Unknown keys are rejected.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg from the environment
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	if addr, ok := lookup("RELAY_ADDR"); ok && addr != "" {
		c.Server.Addr = addr
	}
	if domains, ok := lookup("DOMAINS"); ok {
		c.Server.AllowedOrigins = splitList(domains)
	}
	if level, ok := lookup("LOG_LEVEL"); ok && level != "" {
		c.Log.Level = level
	}
	if format, ok := lookup("LOG_FORMAT"); ok && format != "" {
		c.Log.Format = format
	}
	if policy, ok := lookup("RELAY_QUEUE_OVERFLOW"); ok && policy != "" {
		c.Queue.Overflow = policy
	}
	if size, ok := lookup("RELAY_QUEUE_SIZE"); ok && size != "" {
		n, err := strconv.Atoi(size)
		if err != nil {
			return fmt.Errorf("RELAY_QUEUE_SIZE: %w", err)
		}
		c.Queue.Size = n
	}
	return nil
}

// Validate rejects settings the relay cannot run with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ReadLimit <= 0 {
		return fmt.Errorf("server.read_limit must be positive, got %d", c.Server.ReadLimit)
	}
	if c.Server.PongWait <= 0 || c.Server.WriteWait <= 0 {
		return errors.New("server.pong_wait and server.write_wait must be positive")
	}
	if c.Queue.Size <= 0 {
		return fmt.Errorf("queue.size must be positive, got %d", c.Queue.Size)
	}
	if _, err := connection.ParsePolicy(c.Queue.Overflow); err != nil {
		return fmt.Errorf("queue.overflow: %w", err)
	}
	if c.Limits.MessagesPerSecond < 0 || c.Limits.ConnectionsPerMinute < 0 {
		return errors.New("limits rates must not be negative")
	}
	if c.Limits.MaxRooms < 0 || c.Limits.MaxRoomSize < 0 {
		return errors.New("limits.max_rooms and limits.max_room_size must not be negative")
	}
	if c.Cursor.MinInterval < 0 {
		return errors.New("cursor.min_interval must not be negative")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are not an error; existing variables are kept.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
