// Package message defines the protocol spoken with a local model runner.
//
// All messages are newline-delimited JSON, one message per line. The runner
// announces READY once its model and tokenizer are loaded; afterwards every
// TRANSLATE request is answered by exactly one RESULT or ERROR carrying the
// same ID. SHUTDOWN asks the runner to exit.
//
// A TRANSLATE request with an empty Source carries no source hint: the
// runner translates with the model's own source handling (multilingual
// models infer it from the text). Lines on stdout that are not messages are
// ignored by the client.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned by Decode for a line that is not a message, such
// as progress text a runner prints to stdout.
var ErrMalformed = errors.New("malformed message")

// Type identifies the kind of message.
type Type string

const (
	TypeReady     Type = "READY"
	TypeTranslate Type = "TRANSLATE"
	TypeResult    Type = "RESULT"
	TypeError     Type = "ERROR"
	TypeShutdown  Type = "SHUTDOWN"
)

// Message is the top-level wire envelope.
type Message struct {
	// Always present
	Type Type   `json:"type"`
	ID   uint64 `json:"id,omitempty"`

	// READY: model identifier reported by the runner
	Model string `json:"model,omitempty"`

	// TRANSLATE: Source and Target are model tags, not ISO codes.
	// RESULT: Text is the translation.
	Text   string `json:"text,omitempty"`
	Source string `json:"source,omitempty"`
	Target string `json:"target,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &m, nil
}
