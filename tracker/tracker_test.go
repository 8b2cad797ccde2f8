package tracker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"unity-mover/messages"
)

func feedback(id string) *messages.MoveCompletionFeedback {
	return &messages.MoveCompletionFeedback{
		ObjectName:    "Cube",
		FinalPosition: []float64{0, 5, 0},
		Status:        messages.StatusSuccess,
		Timestamp:     "2026-08-30T10:00:00Z",
		RequestID:     id,
	}
}

func TestTracker_CheckConsumesOnce(t *testing.T) {
	tr := New()
	tr.Record(feedback("r1"))

	fb, ok := tr.Check("r1")
	if !ok || fb.RequestID != "r1" {
		t.Fatalf("Check() mismatch: fb=%#v ok=%#v", fb, ok)
	}
	if _, ok := tr.Check("r1"); ok {
		t.Errorf("feedback must be consumed on first Check")
	}
	if tr.Pending() != 0 {
		t.Errorf("Pending() mismatch: %#v", tr.Pending())
	}
}

func TestTracker_CheckUnknownRequest(t *testing.T) {
	tr := New()
	if fb, ok := tr.Check("missing"); ok || fb != nil {
		t.Errorf("Check(missing) mismatch: fb=%#v ok=%#v", fb, ok)
	}
}

func TestTracker_HandleFeedback(t *testing.T) {
	tests := []struct {
		name        string
		payload     []byte
		wantPending int
	}{
		{"stores valid feedback", mustMarshal(t, feedback("r1")), 1},
		{"drops malformed", []byte("not json"), 0},
		{"drops missing request_id", mustMarshal(t, feedback("")), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New()
			if err := tr.HandleFeedback(context.Background(), tt.payload); err != nil {
				t.Fatalf("HandleFeedback() err: %#v", err)
			}
			if got := tr.Pending(); got != tt.wantPending {
				t.Errorf("Pending() got=%#v want=%#v", got, tt.wantPending)
			}
		})
	}
}

func TestTracker_AwaitBeforeRecord(t *testing.T) {
	tr := New()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan *messages.MoveCompletionFeedback, 1)
	go func() {
		fb, err := tr.Await(ctx, "r1")
		if err != nil {
			done <- nil
			return
		}
		done <- fb
	}()

	// Give the waiter a moment to register before delivering
	time.Sleep(20 * time.Millisecond)
	tr.Record(feedback("r1"))

	fb := <-done
	if fb == nil || fb.RequestID != "r1" {
		t.Fatalf("Await() mismatch: %#v", fb)
	}
	if tr.Pending() != 0 {
		t.Errorf("delivered feedback must not linger: %#v", tr.Pending())
	}
}

func TestTracker_AwaitAfterRecord(t *testing.T) {
	tr := New()
	tr.Record(feedback("r1"))
	fb, err := tr.Await(context.Background(), "r1")
	if err != nil || fb.RequestID != "r1" {
		t.Fatalf("Await() mismatch: fb=%#v err=%#v", fb, err)
	}
}

func TestTracker_AwaitCancelled(t *testing.T) {
	tr := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tr.Await(ctx, "r1"); err == nil {
		t.Fatalf("Await() must fail on cancelled context")
	}
	// Late feedback after a cancelled wait is stored normally
	tr.Record(feedback("r1"))
	if _, ok := tr.Check("r1"); !ok {
		t.Errorf("late feedback must still be retrievable")
	}
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %#v", err)
	}
	return b
}
