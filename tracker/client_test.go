package tracker

import (
	"context"
	"testing"
	"time"

	"unity-mover/messages"
)

type captureCommandPublisher struct {
	commands []*messages.MoveCommand
	err      error
}

func (c *captureCommandPublisher) PublishCommand(_ context.Context, cmd *messages.MoveCommand) error {
	if c.err != nil {
		return c.err
	}
	c.commands = append(c.commands, cmd)
	return nil
}

func TestClient_InitiateMove(t *testing.T) {
	tests := []struct {
		name     string
		object   string
		target   []float64
		duration float64
		pubErr   error
		wantErr  bool
		wantDur  float64
	}{
		{name: "valid", object: "Cube", target: []float64{0, 5, 0}, duration: 3, wantDur: 3},
		{name: "default duration", object: "Cube", target: []float64{0, 5, 0}, duration: 0, wantDur: messages.DefaultMoveDuration},
		{name: "negative duration", object: "Cube", target: []float64{0, 5, 0}, duration: -2, wantDur: messages.DefaultMoveDuration},
		{name: "missing object", object: "", target: []float64{0, 5, 0}, duration: 1, wantErr: true},
		{name: "wrong arity", object: "Cube", target: []float64{1, 2}, duration: 1, wantErr: true},
		{name: "publish failure", object: "Cube", target: []float64{0, 5, 0}, duration: 1, pubErr: context.DeadlineExceeded, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &captureCommandPublisher{err: tt.pubErr}
			c := NewClient(pub, New())
			c.newID = func() string { return "fixed-id" }

			id, err := c.InitiateMove(context.Background(), tt.object, tt.target, tt.duration)
			gotErr := (err != nil)
			if gotErr != tt.wantErr {
				t.Fatalf("InitiateMove() error mismatch\ngotErr: %#v\nwantErr: %#v\nerr: %#v", gotErr, tt.wantErr, err)
			}
			if tt.wantErr {
				if len(pub.commands) != 0 && tt.pubErr == nil {
					t.Errorf("invalid request must not publish: %#v", pub.commands)
				}
				return
			}
			if id != "fixed-id" {
				t.Errorf("request id mismatch: %#v", id)
			}
			if len(pub.commands) != 1 {
				t.Fatalf("publish count mismatch: %#v", len(pub.commands))
			}
			cmd := pub.commands[0]
			if cmd.ObjectName != tt.object || cmd.Duration != tt.wantDur || cmd.RequestID != "fixed-id" {
				t.Errorf("published command mismatch: %#v", cmd)
			}
		})
	}
}

func TestClient_GeneratedIDsAreUnique(t *testing.T) {
	pub := &captureCommandPublisher{}
	c := NewClient(pub, New())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id, err := c.InitiateMove(context.Background(), "Cube", []float64{1, 1, 1}, 1)
		if err != nil {
			t.Fatalf("InitiateMove() err: %#v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate request id generated: %#v", id)
		}
		seen[id] = true
	}
}

func TestClient_MoveAndWait(t *testing.T) {
	pub := &captureCommandPublisher{}
	tr := New()
	c := NewClient(pub, tr)
	c.newID = func() string { return "r1" }

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan *messages.MoveCompletionFeedback, 1)
	go func() {
		fb, err := c.MoveAndWait(ctx, "Cube", []float64{0, 5, 0}, 1)
		if err != nil {
			done <- nil
			return
		}
		done <- fb
	}()

	time.Sleep(20 * time.Millisecond)
	tr.Record(&messages.MoveCompletionFeedback{ObjectName: "Cube", FinalPosition: []float64{0, 5, 0}, Status: messages.StatusSuccess, RequestID: "r1"})

	fb := <-done
	if fb == nil || fb.RequestID != "r1" || fb.Status != messages.StatusSuccess {
		t.Fatalf("MoveAndWait() mismatch: %#v", fb)
	}
}
