package tracker

import (
	"context"
	"fmt"

	"unity-mover/messages"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client publishes move commands with generated request ids. Validation runs
// locally before publish so the agent learns about an impossible request
// without a broker round trip.
type Client struct {
	publisher messages.CommandPublisher
	tracker   *Tracker
	newID     func() string
}

func NewClient(pub messages.CommandPublisher, tr *Tracker) *Client {
	return &Client{publisher: pub, tracker: tr, newID: uuid.NewString}
}

// InitiateMove sends a command to move objectName to target over duration
// seconds and returns the request id to track. A non-positive duration gets
// the engine default.
func (c *Client) InitiateMove(ctx context.Context, objectName string, target []float64, duration float64) (string, error) {
	if objectName == "" {
		return "", fmt.Errorf("object name is required")
	}
	if len(target) != 3 {
		return "", fmt.Errorf("target position must have exactly 3 components, got %d", len(target))
	}
	if duration <= 0 {
		duration = messages.DefaultMoveDuration
	}

	cmd := &messages.MoveCommand{
		ObjectName:     objectName,
		TargetPosition: target,
		Duration:       duration,
		RequestID:      c.newID(),
	}
	if err := c.publisher.PublishCommand(ctx, cmd); err != nil {
		return "", fmt.Errorf("publish move command: %w", err)
	}
	log.Info().Str("object", objectName).Floats64("target", target).Float64("duration", duration).Str("requestId", cmd.RequestID).Msg("client: move initiated")
	return cmd.RequestID, nil
}

// MoveAndWait initiates a move and blocks until its feedback arrives.
func (c *Client) MoveAndWait(ctx context.Context, objectName string, target []float64, duration float64) (*messages.MoveCompletionFeedback, error) {
	id, err := c.InitiateMove(ctx, objectName, target, duration)
	if err != nil {
		return nil, err
	}
	return c.tracker.Await(ctx, id)
}
