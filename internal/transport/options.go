package transport

import (
	"whiteboard-relay/internal/config"
	"whiteboard-relay/internal/connection"
	"whiteboard-relay/internal/middleware"
)

// OptionsFromConfig maps relay configuration onto handler options and
// the per-connection limits
func OptionsFromConfig(cfg config.Config) (Options, *middleware.RateLimit, error) {
	overflow, err := connection.ParsePolicy(cfg.Queue.Overflow)
	if err != nil {
		return Options{}, nil, err
	}

	limits := middleware.NewRateLimit(cfg.Limits.MaxMessageSize, cfg.Limits.MessagesPerSecond, cfg.Limits.Burst)
	return Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadLimit:      cfg.Server.ReadLimit,
		PongWait:       cfg.Server.PongWait,
		WriteWait:      cfg.Server.WriteWait,
		Connection: connection.Options{
			QueueSize:         cfg.Queue.Size,
			Overflow:          overflow,
			CoalesceCursors:   cfg.Queue.CoalesceCursors,
			MessagesPerSecond: limits.MessagesPerSecond,
			Burst:             limits.BurstSize,
		},
	}, limits, nil
}
