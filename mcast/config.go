package mcast

import (
	"time"

	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/core"
	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/definition"
	"github.com/lucaslopes5988/lamport-mcast/internal/mcast/types"
)

// Configuration bundles everything a Process needs to start.
type Configuration struct {
	// SelfID is this peer's integer identifier.
	SelfID int

	// Host/Port is where this peer's transport listens. Port 0 lets the
	// OS choose. If the port cannot be bound, Start retries on Port+1,
	// Port+2, and so on.
	Host string
	Port int

	AckTimeout     time.Duration
	MaxRetries     int
	ConnectTimeout time.Duration
	IOTimeout      time.Duration

	// EventLogCapacity bounds the circular event-log buffer.
	EventLogCapacity int

	Logger types.Logger
}

// DefaultConfiguration fills in the default addressing convention
// (host="localhost", port=8000+id) and the engine's default timeouts.
func DefaultConfiguration(selfID int) *Configuration {
	return &Configuration{
		SelfID:           selfID,
		Host:             "localhost",
		Port:             8000 + selfID,
		AckTimeout:       core.DefaultAckTimeout,
		MaxRetries:       core.DefaultMaxRetries,
		ConnectTimeout:   core.DefaultConnectTimeout,
		IOTimeout:        core.DefaultIOTimeout,
		EventLogCapacity: 1000,
		Logger:           definition.NewDefaultLogger(selfID),
	}
}
