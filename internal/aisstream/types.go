package aisstream

import (
	"time"

	"vessel-track-lab/internal/domain"
)

// DefaultEndpoint is the public aisstream.io endpoint.
const DefaultEndpoint = "wss://stream.aisstream.io/v0/stream"

// Config configures the feed connection and subscription.
type Config struct {
	Endpoint      string
	APIKey        string
	BoundingBoxes []domain.BoundingBox
	// MessageTypes restricts the feed server-side. Default: PositionReport.
	MessageTypes []string
	// ShipMMSI optionally restricts the feed to these vessels.
	ShipMMSI []string

	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
	// ReadTimeout is the longest silence tolerated before the connection is
	// considered stalled. Zero disables the deadline.
	ReadTimeout time.Duration
	// WriteTimeout bounds subscription and control frame writes.
	WriteTimeout time.Duration
	// PingInterval is the interval for sending ping frames. Zero disables pings.
	PingInterval time.Duration
}

// DefaultConfig returns default feed configuration without credentials.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		BoundingBoxes:    []domain.BoundingBox{domain.DefaultBoundingBox},
		MessageTypes:     []string{TypePositionReport},
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// subscription is the first and only frame the client sends.
type subscription struct {
	APIKey             string               `json:"APIKey"`
	BoundingBoxes      []domain.BoundingBox `json:"BoundingBoxes"`
	FiltersShipMMSI    []string             `json:"FiltersShipMMSI,omitempty"`
	FilterMessageTypes []string             `json:"FilterMessageTypes"`
}
