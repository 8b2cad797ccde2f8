// Package tracker is the agent side of the protocol: it correlates completion
// feedback with outstanding requests by request_id and publishes new commands
// with generated ids. The NLU layer that decides what to move is someone
// else's problem; it consumes this package.
package tracker

import (
	"context"
	"sync"

	"unity-mover/messages"

	"github.com/rs/zerolog/log"
)

// Tracker collects completion feedback keyed by request id. Feedback is
// consume-once: a successful Check (or Await) removes it, matching the
// polling tool contract where a delivered result is not reported twice.
type Tracker struct {
	mu        sync.Mutex
	completed map[string]*messages.MoveCompletionFeedback
	waiters   map[string][]chan *messages.MoveCompletionFeedback
}

func New() *Tracker {
	return &Tracker{
		completed: make(map[string]*messages.MoveCompletionFeedback),
		waiters:   make(map[string][]chan *messages.MoveCompletionFeedback),
	}
}

// HandleFeedback is the feedback-topic subscriber handler. Malformed payloads
// and feedback without a request id are logged and dropped; there is nothing
// to correlate them with.
func (t *Tracker) HandleFeedback(_ context.Context, payload []byte) error {
	fb, err := messages.DecodeFeedback(payload)
	if err != nil {
		log.Error().Err(err).Int("size", len(payload)).Msg("tracker: dropping malformed feedback")
		return nil
	}
	if fb.RequestID == "" {
		log.Warn().Str("object", fb.ObjectName).Msg("tracker: feedback without request_id")
		return nil
	}
	t.Record(fb)
	return nil
}

// Record stores feedback, or hands it straight to pending waiters.
func (t *Tracker) Record(fb *messages.MoveCompletionFeedback) {
	t.mu.Lock()
	if ws := t.waiters[fb.RequestID]; len(ws) > 0 {
		delete(t.waiters, fb.RequestID)
		t.mu.Unlock()
		for _, w := range ws {
			w <- fb
		}
		log.Debug().Str("requestId", fb.RequestID).Str("status", string(fb.Status)).Msg("tracker: feedback delivered to waiter")
		return
	}
	t.completed[fb.RequestID] = fb
	t.mu.Unlock()
	log.Info().Str("requestId", fb.RequestID).Str("object", fb.ObjectName).Str("status", string(fb.Status)).Msg("tracker: feedback recorded")
}

// Check reports and consumes the feedback for a request, if it has arrived.
func (t *Tracker) Check(requestID string) (*messages.MoveCompletionFeedback, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fb, ok := t.completed[requestID]
	if ok {
		delete(t.completed, requestID)
	}
	return fb, ok
}

// Await blocks until feedback for the request arrives or ctx is done.
func (t *Tracker) Await(ctx context.Context, requestID string) (*messages.MoveCompletionFeedback, error) {
	ch := make(chan *messages.MoveCompletionFeedback, 1)

	t.mu.Lock()
	if fb, ok := t.completed[requestID]; ok {
		delete(t.completed, requestID)
		t.mu.Unlock()
		return fb, nil
	}
	t.waiters[requestID] = append(t.waiters[requestID], ch)
	t.mu.Unlock()

	select {
	case fb := <-ch:
		return fb, nil
	case <-ctx.Done():
		t.mu.Lock()
		ws := t.waiters[requestID]
		for i, w := range ws {
			if w == ch {
				t.waiters[requestID] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
		if len(t.waiters[requestID]) == 0 {
			delete(t.waiters, requestID)
		}
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Pending returns how many unconsumed feedback messages are held.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.completed)
}
