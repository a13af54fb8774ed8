package config

import (
	"github.com/spf13/pflag"
)

// FromArgs builds the configuration from every layer. args excludes the
// program name; lookup is usually os.LookupEnv.
func FromArgs(args []string, lookup func(string) (string, bool)) (Config, error) {
	fs := pflag.NewFlagSet("whiteboard-relay", pflag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (default $RELAY_CONFIG)")
	addr := fs.String("addr", "", "listen address")
	origins := fs.StringSlice("allowed-origins", nil, "accepted browser origins, comma separated")
	queueSize := fs.Int("queue-size", 0, "outbound events buffered per connection")
	overflow := fs.String("queue-overflow", "", "full queue policy: drop-oldest, drop-newest or disconnect")
	coalesce := fs.Bool("coalesce-cursors", false, "let a newer cursor sample replace a pending one")
	cursorInterval := fs.Duration("cursor-interval", 0, "minimum interval between relayed cursor samples")
	messagesPerSecond := fs.Float64("messages-per-second", 0, "inbound events per connection per second")
	maxRooms := fs.Int("max-rooms", 0, "maximum live rooms")
	maxRoomSize := fs.Int("max-room-size", 0, "maximum members per room")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text or json")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Default()

	path := *configPath
	if path == "" {
		path, _ = lookup("RELAY_CONFIG")
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	if fs.Changed("addr") {
		cfg.Server.Addr = *addr
	}
	if fs.Changed("allowed-origins") {
		cfg.Server.AllowedOrigins = *origins
	}
	if fs.Changed("queue-size") {
		cfg.Queue.Size = *queueSize
	}
	if fs.Changed("queue-overflow") {
		cfg.Queue.Overflow = *overflow
	}
	if fs.Changed("coalesce-cursors") {
		cfg.Queue.CoalesceCursors = *coalesce
	}
	if fs.Changed("cursor-interval") {
		cfg.Cursor.MinInterval = *cursorInterval
	}
	if fs.Changed("messages-per-second") {
		cfg.Limits.MessagesPerSecond = *messagesPerSecond
	}
	if fs.Changed("max-rooms") {
		cfg.Limits.MaxRooms = *maxRooms
	}
	if fs.Changed("max-room-size") {
		cfg.Limits.MaxRoomSize = *maxRoomSize
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = *logFormat
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
