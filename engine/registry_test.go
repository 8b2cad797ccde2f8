package engine

import (
	"reflect"
	"testing"
	"time"
)

func TestRegistry_Basics(t *testing.T) {
	reg := NewRegistry("Cube", "Sphere")

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"Cube", "Sphere"}) {
		t.Errorf("Names() mismatch: %#v", got)
	}
	if !reg.Has("Cube") || reg.Has("Pyramid") {
		t.Errorf("Has() mismatch")
	}

	pos, ok := reg.Position("Cube")
	if !ok || pos != (Position{}) {
		t.Errorf("new entities start at the origin: %#v ok=%#v", pos, ok)
	}
	if _, ok := reg.Position("Pyramid"); ok {
		t.Errorf("unknown entity must not report a position")
	}
	if reg.Moving("Cube") {
		t.Errorf("new entities start idle")
	}
}

func TestRegistry_AddResetsEntity(t *testing.T) {
	reg := NewRegistry()
	reg.Add("Cube", Position{1, 2, 3})

	pos, ok := reg.Position("Cube")
	if !ok || pos != (Position{1, 2, 3}) {
		t.Errorf("Position() after Add mismatch: %#v", pos)
	}

	// Re-adding drops the in-flight move
	reg.mu.Lock()
	reg.entities["Cube"].move = &activeMove{requestID: "r1", duration: time.Second}
	reg.mu.Unlock()
	reg.Add("Cube", Position{9, 9, 9})
	if reg.Moving("Cube") {
		t.Errorf("Add() must reset the entity's move")
	}
	if pos, _ := reg.Position("Cube"); pos != (Position{9, 9, 9}) {
		t.Errorf("Add() must overwrite the position: %#v", pos)
	}
}

func TestActiveMove_At(t *testing.T) {
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	m := &activeMove{
		start:     Position{0, 0, 0},
		target:    Position{0, 10, 0},
		startTime: start,
		duration:  2 * time.Second,
		requestID: "r1",
	}

	tests := []struct {
		name     string
		at       time.Time
		wantPos  Position
		wantDone bool
	}{
		{"before start clamps to start", start.Add(-time.Second), Position{0, 0, 0}, false},
		{"at start", start, Position{0, 0, 0}, false},
		{"quarter", start.Add(500 * time.Millisecond), Position{0, 2.5, 0}, false},
		{"half", start.Add(time.Second), Position{0, 5, 0}, false},
		{"exactly done", start.Add(2 * time.Second), Position{0, 10, 0}, true},
		{"overshoot clamps to target", start.Add(time.Minute), Position{0, 10, 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, done := m.at(tt.at)
			if pos != tt.wantPos || done != tt.wantDone {
				t.Errorf("at() got=(%#v, %#v) want=(%#v, %#v)", pos, done, tt.wantPos, tt.wantDone)
			}
		})
	}
}
