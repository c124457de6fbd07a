package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types carried on the queues.
const (
	TypeCatalogUpsert         = "catalog.upsert"
	TypeApplicationTransition = "application.transition"
)

const currentVersion = 1

// Message is the envelope every queue payload travels in. Payload is decoded
// by the consumer according to Type.
type Message struct {
	Type       string          `json:"type"`
	RequestID  string          `json:"requestId,omitempty"`
	EnqueuedAt string          `json:"enqueuedAt"`
	Version    int             `json:"version"`
	Payload    json.RawMessage `json:"payload"`
}

// NewMessage wraps payload in an envelope stamped with at.
func NewMessage(msgType, requestID string, payload any, at time.Time) (Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return Message{
		Type:       msgType,
		RequestID:  requestID,
		EnqueuedAt: at.UTC().Format(time.RFC3339Nano),
		Version:    currentVersion,
		Payload:    body,
	}, nil
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DecodePayload unmarshals the message payload into dst.
func (m Message) DecodePayload(dst any) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, dst)
}
