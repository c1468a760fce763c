// Package bus carries coordination events between the servers of a fleet.
// Every server sees every event; replies are addressed to the origin and
// dropped by everyone else.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrClosed          = errors.New("bus closed")
	ErrPayloadTooLarge = errors.New("bus payload too large")
)

type Type string

const (
	TypeEvent Type = "event"
	TypeReply Type = "reply"
)

type Envelope struct {
	Type Type   `json:"type"`
	ID   string `json:"id"`
	Kind string `json:"kind"`
	// Origin is the server that published the event; replies go back to it.
	Origin string `json:"origin"`
	// Target is set on replies only.
	Target      string          `json:"target,omitempty"`
	Responder   string          `json:"responder,omitempty"`
	ExpectReply bool            `json:"expect_reply,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Completed   bool            `json:"completed,omitempty"`
	Settable    bool            `json:"settable,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	SentAt      int64           `json:"sent_at"`
}

// IsReplyFor reports whether env is a reply addressed to server.
func (env Envelope) IsReplyFor(server string) bool {
	return env.Type == TypeReply && env.Target == server
}

type Transport interface {
	Publish(ctx context.Context, env Envelope) error
	// Receive blocks delivering envelopes to handle until ctx is done or the
	// transport is closed. handle must not block for long.
	Receive(ctx context.Context, handle func(Envelope)) error
	Close() error
}

func Encode(env Envelope) ([]byte, error) {
	if env.SentAt == 0 {
		env.SentAt = time.Now().UnixMilli()
	}
	return json.Marshal(env)
}

func Decode(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
