package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Fixed wire topics; the Unity scene and the LLM agent both hardcode these.
const (
	DefaultCommandTopic  = "unity/commands/move"
	DefaultFeedbackTopic = "unity/feedback/move_complete"
)

// DefaultMoveDuration is substituted when a command carries no usable duration.
const DefaultMoveDuration = 2.0 // seconds

// MoveCommand is the wire format produced by the agent. TargetPosition is kept
// as a slice rather than a fixed array so a wrong-arity position decodes cleanly
// and can be rejected with a correlated failure feedback instead of a hard
// decode error.
type MoveCommand struct {
	ObjectName     string    `json:"object_name"`
	TargetPosition []float64 `json:"target_position"`
	Duration       float64   `json:"duration"`
	RequestID      string    `json:"request_id"`
}

type MoveStatus string

const (
	StatusSuccess MoveStatus = "success"
	StatusFailure MoveStatus = "failure"
)

// MoveCompletionFeedback is the wire format published back to the agent once a
// move finishes or is rejected.
type MoveCompletionFeedback struct {
	ObjectName    string     `json:"object_name"`
	FinalPosition []float64  `json:"final_position"`
	Status        MoveStatus `json:"status"`
	Timestamp     string     `json:"timestamp"`
	RequestID     string     `json:"request_id"`
}

// DecodeMoveCommand parses a raw command payload. It never returns a partially
// populated command: any decode failure yields a nil command.
func DecodeMoveCommand(data []byte) (*MoveCommand, error) {
	var cmd MoveCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("decode move command: %w", err)
	}
	return &cmd, nil
}

// DecodeFeedback parses a raw feedback payload (tracker side).
func DecodeFeedback(data []byte) (*MoveCompletionFeedback, error) {
	var fb MoveCompletionFeedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return nil, fmt.Errorf("decode move feedback: %w", err)
	}
	return &fb, nil
}

// Timestamp renders t in the wire timestamp format: UTC, ISO-8601, seconds
// precision.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// NewFeedback builds a feedback value for the given request.
func NewFeedback(objectName string, finalPos []float64, status MoveStatus, at time.Time, requestID string) *MoveCompletionFeedback {
	return &MoveCompletionFeedback{
		ObjectName:    objectName,
		FinalPosition: finalPos,
		Status:        status,
		Timestamp:     Timestamp(at),
		RequestID:     requestID,
	}
}

// FeedbackPublisher sends completion feedback on the feedback topic.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, fb *MoveCompletionFeedback) error
}

// CommandPublisher sends move commands on the command topic (agent side).
type CommandPublisher interface {
	PublishCommand(ctx context.Context, cmd *MoveCommand) error
}

// Subscriber delivers raw payloads from a topic in arrival order. Decoding and
// validation belong to the consumer, so transports stay byte-oriented and a
// malformed payload is the engine's call, not the transport's.
type Subscriber interface {
	Start(ctx context.Context, handler func(ctx context.Context, payload []byte) error) error
}
