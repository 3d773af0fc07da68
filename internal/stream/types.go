package stream

import (
	"errors"
	"time"

	"github.com/rickgao/aviarycare/internal/model"
)

// Errors
var (
	ErrClosed         = errors.New("stream server closed")
	ErrUnknownMessage = errors.New("unknown client message type")
)

// Client message types.
const (
	MsgVisibility = "visibility"
	MsgHover      = "hover"
)

// ClientMessage is a report sent by the browser.
type ClientMessage struct {
	Type    string `json:"type"`
	Visible *bool  `json:"visible,omitempty"`
	Hovered *bool  `json:"hovered,omitempty"`
}

// Widget is the part of the live metrics widget the stream needs.
type Widget interface {
	Subscribe() (<-chan model.Snapshot, func())
	SetVisible(visible bool)
	SetHovered(hovered bool)
}

// Recorder observes connection churn.
type Recorder interface {
	ClientConnected()
	ClientDisconnected(dropped bool)
}

// Config holds stream server settings.
type Config struct {
	WriteTimeout   time.Duration // Per-write deadline (default: 5s)
	PingInterval   time.Duration // Server ping period (default: 30s)
	PongTimeout    time.Duration // Drop after this long without a pong (default: 60s)
	ReadLimit      int64         // Max client message size in bytes (default: 512)
	AllowedOrigins []string      // Empty allows same-host origins only
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		ReadLimit:    512,
	}
}
