package queue

import (
	"encoding/json"
	"errors"
	"strings"
)

const MessageVersion = 1

// Message asks a worker to run the pipeline for one submission.
type Message struct {
	SubmissionID string `json:"submissionId"`
	RunToken     string `json:"runToken"`
	RequestID    string `json:"requestId,omitempty"`
	EnqueuedAt   string `json:"enqueuedAt"`
	Version      int    `json:"version"`
}

var (
	ErrMissingSubmissionID = errors.New("missing submission id")
	ErrMissingRunToken     = errors.New("missing run token")
)

// Validate checks the fields a worker needs.
func (m Message) Validate() error {
	if strings.TrimSpace(m.SubmissionID) == "" {
		return ErrMissingSubmissionID
	}
	if strings.TrimSpace(m.RunToken) == "" {
		return ErrMissingRunToken
	}
	return nil
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
