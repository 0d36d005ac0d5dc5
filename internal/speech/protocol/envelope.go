package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Envelope is the framing for every message on the speech WebSocket, in
// both directions. RequestID correlates a request with its ack.
type Envelope struct {
	Type      MessageType `msgpack:"type" json:"type"`
	RequestID string      `msgpack:"requestId,omitempty" json:"requestId,omitempty"`
	Body      any         `msgpack:"body" json:"body"`
}

func NewEnvelope(msgType MessageType, body any) *Envelope {
	return &Envelope{Type: msgType, Body: body}
}

func NewRequestEnvelope(msgType MessageType, requestID string, body any) *Envelope {
	return &Envelope{Type: msgType, RequestID: requestID, Body: body}
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &e, nil
}

// DecodeBody converts an envelope body into a concrete type. Msgpack
// decodes unknown bodies as map[string]any, so a re-encode round trip is
// used when the direct assertion fails.
func DecodeBody[T any](e *Envelope) (*T, error) {
	if typed, ok := e.Body.(T); ok {
		return &typed, nil
	}

	data, err := msgpack.Marshal(e.Body)
	if err != nil {
		return nil, fmt.Errorf("re-encode body: %w", err)
	}

	var result T
	if err := msgpack.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode body to %T: %w", result, err)
	}
	return &result, nil
}
