package service

import (
	"errors"
	"reflect"
	"testing"
)

func TestScopeReleasesInReverseOrder(t *testing.T) {
	var released []string
	s := &scope{}
	for _, name := range []string{"session", "connection", "request"} {
		name := name
		s.acquire(name, func() error {
			released = append(released, name)
			if name == "connection" {
				return errors.New("already closed")
			}
			return nil
		})
	}
	if s.open() != 3 {
		t.Fatalf("expected 3 open handles, got %d", s.open())
	}
	s.releaseAll()
	if !reflect.DeepEqual(released, []string{"request", "connection", "session"}) {
		t.Fatalf("unexpected release order %v", released)
	}
	if s.open() != 0 {
		t.Fatalf("handles left after release")
	}
	s.releaseAll()
	if len(released) != 3 {
		t.Fatalf("handles released twice")
	}
}

func TestStateString(t *testing.T) {
	if Idle.String() != "Idle" || AwaitingResponse.String() != "AwaitingResponse" || Failed.String() != "Failed" {
		t.Fatalf("unexpected state names")
	}
	if State(99).String() != "Unknown" {
		t.Fatalf("unexpected name for out of range state")
	}
	if !Done.Terminal() || !Failed.Terminal() || StreamingBody.Terminal() {
		t.Fatalf("unexpected terminal states")
	}
}
