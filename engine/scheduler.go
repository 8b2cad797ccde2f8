package engine

import (
	"context"
	"errors"
	"time"

	"unity-mover/messages"
	"unity-mover/metrics"

	"github.com/rs/zerolog/log"
)

// DefaultTickInterval paces the interpolation loop when the caller does not
// choose one. 50ms keeps motion smooth at typical scene frame rates.
const DefaultTickInterval = 50 * time.Millisecond

// Scheduler drives time-based interpolation for every entity in a registry.
// Each entity is either idle or has exactly one active move; a new submission
// while moving supersedes the old move, which then emits no feedback.
type Scheduler struct {
	registry  *Registry
	publisher messages.FeedbackPublisher
	clock     func() time.Time
}

func NewScheduler(reg *Registry, pub messages.FeedbackPublisher) *Scheduler {
	return &Scheduler{registry: reg, publisher: pub, clock: time.Now}
}

// Submit starts a move for the entity. If a move is already in flight it is
// discarded in place: the entity's position is first advanced to its current
// interpolated value so the new move continues from where the object visibly
// is, not from the old move's origin. Callers that skip the ingestor still
// get the arity check; a short target slice is rejected, never indexed.
func (s *Scheduler) Submit(name string, cmd *messages.MoveCommand) error {
	if len(cmd.TargetPosition) != 3 {
		return ErrInvalidPosition
	}
	now := s.clock()

	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	ent, ok := s.registry.entities[name]
	if !ok {
		return ErrUnknownEntity
	}
	if ent.move != nil {
		pos, _ := ent.move.at(now)
		ent.pos = pos
		log.Info().Str("object", name).Str("supersededRequestId", ent.move.requestID).Str("requestId", cmd.RequestID).Msg("scheduler: superseding in-flight move")
	}
	ent.move = &activeMove{
		target:    Position{cmd.TargetPosition[0], cmd.TargetPosition[1], cmd.TargetPosition[2]},
		start:     ent.pos,
		startTime: now,
		duration:  time.Duration(cmd.Duration * float64(time.Second)),
		requestID: cmd.RequestID,
	}
	log.Info().Str("object", name).Floats64("target", cmd.TargetPosition).Float64("duration", cmd.Duration).Str("requestId", cmd.RequestID).Msg("scheduler: move started")
	return nil
}

// completion is a move that reached its target on this tick; feedback is
// published after the registry lock is released.
type completion struct {
	object    string
	final     Position
	requestID string
	elapsed   time.Duration
}

// Tick advances every active move to now. Entities that reach their target are
// snapped onto it, returned to idle and reported with a success feedback. A
// failed publish is logged and surfaced but never rolls the entity back: the
// motion happened whether or not the notification got out.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) error {
	var done []completion

	s.registry.mu.Lock()
	for name, ent := range s.registry.entities {
		if ent.move == nil {
			continue
		}
		pos, finished := ent.move.at(now)
		ent.pos = pos
		if finished {
			done = append(done, completion{
				object:    name,
				final:     pos,
				requestID: ent.move.requestID,
				elapsed:   now.Sub(ent.move.startTime),
			})
			ent.move = nil
		}
	}
	s.registry.mu.Unlock()

	var errs []error
	for _, c := range done {
		metrics.MoveDuration.Observe(c.elapsed.Seconds())
		metrics.MovesTotal.WithLabelValues(string(messages.StatusSuccess)).Inc()
		fb := messages.NewFeedback(c.object, c.final.Slice(), messages.StatusSuccess, now, c.requestID)
		if err := s.publisher.PublishFeedback(ctx, fb); err != nil {
			metrics.PublishFailures.Inc()
			log.Error().Err(err).Str("object", c.object).Str("requestId", c.requestID).Msg("scheduler: failed to publish completion feedback")
			errs = append(errs, err)
			continue
		}
		log.Info().Str("object", c.object).Str("requestId", c.requestID).Dur("elapsed", c.elapsed).Msg("scheduler: move complete")
	}
	return errors.Join(errs...)
}

// Run drives Tick on a timer until ctx is cancelled. One loop serves all
// entities; no per-move goroutines or sleeps.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Info().Dur("interval", interval).Msg("scheduler: tick loop started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler: tick loop stopped")
			return
		case <-ticker.C:
			_ = s.Tick(ctx, s.clock())
		}
	}
}
