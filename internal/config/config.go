package config

import (
	"fmt"
	"time"
)

const (
	DefaultRetention     = 72 * time.Hour
	DefaultSweepInterval = time.Hour
)

type Config struct {
	ServerAddr     string
	AllowedOrigins []string
	// Retention is how long room messages are kept before they age out.
	Retention time.Duration
	// SweepInterval is how often the coordinator prunes expired messages
	// from rooms that see no traffic.
	SweepInterval time.Duration
}

func NewConfig(serverAddr string, allowedOrigins []string, retention, sweepInterval time.Duration) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", sweepInterval)
	}

	return &Config{
		ServerAddr:     serverAddr,
		AllowedOrigins: allowedOrigins,
		Retention:      retention,
		SweepInterval:  sweepInterval,
	}, nil
}
