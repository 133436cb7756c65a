package snapshot

import "time"

// Config holds Redis connection and mirror settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	PoolSize     int
	MinIdleConns int

	// TTL bounds how long a room's last snapshot outlives the room.
	TTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		TTL:          6 * time.Hour,
	}
}
