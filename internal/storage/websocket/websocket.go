// Package websocket streams drive telemetry to a live visualization
// server. It implements storage.Backend but not storage.Exportable.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/groundctl/autodrive/pkg/core"
	"github.com/groundctl/autodrive/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// Backend streams session data over WebSocket to the viz server.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends the session header and waits for server ack.
func (b *Backend) StartSession(session *core.DriveSession) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: session})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	data, err := marshalEnvelope(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}

// RecordVehicleState streams one control snapshot (fire-and-forget).
func (b *Backend) RecordVehicleState(state *core.VehicleState) error {
	return b.sendEnvelope(streaming.TypeVehicleState, state)
}

// RecordDriveEvent streams one controller event (fire-and-forget).
func (b *Backend) RecordDriveEvent(event *core.DriveEvent) error {
	return b.sendEnvelope(streaming.TypeDriveEvent, event)
}

// RecordWheelPoses streams the wheel poses of one tick (fire-and-forget).
func (b *Backend) RecordWheelPoses(vehicleID uint16, tick uint64, poses [core.WheelCount]core.WheelPose) error {
	return b.sendEnvelope(streaming.TypeWheelPoses, streaming.WheelPosesPayload{
		VehicleID: vehicleID,
		Tick:      tick,
		Poses:     poses,
	})
}
