package engine

import (
	"context"
	"errors"
	"fmt"

	"unity-mover/messages"
	"unity-mover/metrics"

	"github.com/rs/zerolog/log"
)

// Validation taxonomy. These are resolved locally: the subscriber loop acks
// and drops the message either way, and nothing here is fatal to the process.
var (
	// ErrMalformedPayload: undecodable command. No feedback is emitted since
	// no request id can be trusted.
	ErrMalformedPayload = errors.New("malformed command payload")
	// ErrInvalidPosition: target_position arity is wrong. A failure feedback
	// carrying the request id is emitted so the agent's tracker is not left
	// waiting.
	ErrInvalidPosition = errors.New("target_position must have exactly 3 components")
	// ErrUnknownEntity: command names an entity this engine does not control.
	ErrUnknownEntity = errors.New("unknown entity")
)

// IsValidation reports whether err is a local validation outcome rather than a
// transport problem. Validation outcomes must not be retried or nacked.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrInvalidPosition) || errors.Is(err, ErrUnknownEntity)
}

// Outcome classifies what ingestion did with a payload.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeIgnored  Outcome = "ignored"
	OutcomeRejected Outcome = "rejected"
)

// Ingestor validates raw command payloads and hands accepted moves to the
// scheduler. Multiple executors may share the command topic; commands for
// entities outside this engine's registry are ignored, not failed.
type Ingestor struct {
	registry  *Registry
	scheduler *Scheduler
	publisher messages.FeedbackPublisher
}

func NewIngestor(reg *Registry, sched *Scheduler, pub messages.FeedbackPublisher) *Ingestor {
	return &Ingestor{registry: reg, scheduler: sched, publisher: pub}
}

// Ingest decodes, validates and dispatches one command payload.
//
// Malformed payloads are dropped with no feedback. Commands for foreign
// entities are ignored silently. A wrong-arity target_position is rejected
// with an immediate failure feedback reporting the entity's unchanged
// position. Anything else is normalized (default duration) and submitted.
func (i *Ingestor) Ingest(ctx context.Context, payload []byte) (Outcome, error) {
	cmd, err := messages.DecodeMoveCommand(payload)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(string(OutcomeRejected)).Inc()
		log.Error().Err(err).Int("size", len(payload)).Msg("ingest: dropping malformed command")
		return OutcomeRejected, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if !i.registry.Has(cmd.ObjectName) {
		metrics.CommandsTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
		log.Debug().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Msg("ingest: command for foreign entity, ignoring")
		return OutcomeIgnored, nil
	}

	if len(cmd.TargetPosition) != 3 {
		metrics.CommandsTotal.WithLabelValues(string(OutcomeRejected)).Inc()
		log.Warn().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Int("arity", len(cmd.TargetPosition)).Msg("ingest: rejecting invalid target_position")
		i.publishRejection(ctx, cmd)
		return OutcomeRejected, ErrInvalidPosition
	}

	if cmd.Duration <= 0 {
		log.Debug().Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Float64("duration", cmd.Duration).Msg("ingest: substituting default duration")
		cmd.Duration = messages.DefaultMoveDuration
	}

	if err := i.scheduler.Submit(cmd.ObjectName, cmd); err != nil {
		// Registry membership was checked above; a racing removal still only
		// means the command is not ours.
		metrics.CommandsTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
		return OutcomeIgnored, nil
	}

	metrics.CommandsTotal.WithLabelValues(string(OutcomeAccepted)).Inc()
	return OutcomeAccepted, nil
}

// publishRejection emits a failure feedback for a command that carried a
// usable request id. The entity's position is untouched by the rejection.
func (i *Ingestor) publishRejection(ctx context.Context, cmd *messages.MoveCommand) {
	pos, _ := i.registry.Position(cmd.ObjectName)
	metrics.MovesTotal.WithLabelValues(string(messages.StatusFailure)).Inc()
	fb := messages.NewFeedback(cmd.ObjectName, pos.Slice(), messages.StatusFailure, i.scheduler.clock(), cmd.RequestID)
	if err := i.publisher.PublishFeedback(ctx, fb); err != nil {
		metrics.PublishFailures.Inc()
		log.Error().Err(err).Str("object", cmd.ObjectName).Str("requestId", cmd.RequestID).Msg("ingest: failed to publish rejection feedback")
	}
}
