package middleware

// RateLimit: per-connection inbound limits
type RateLimit struct {
	MaxMessageSize    int
	MessagesPerSecond float64
	BurstSize         int
}

func NewRateLimit(maxMessageSize int, messagesPerSecond float64, burstSize int) *RateLimit {
	return &RateLimit{
		MaxMessageSize:    maxMessageSize,
		MessagesPerSecond: messagesPerSecond,
		BurstSize:         burstSize,
	}
}

// ValidateMessageSize: checks if a message is within the size limit.
// A zero limit accepts any size.
func (rl *RateLimit) ValidateMessageSize(msgSize int) bool {
	return rl.MaxMessageSize <= 0 || msgSize <= rl.MaxMessageSize
}
