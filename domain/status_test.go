package domain

import (
	"errors"
	"testing"
)

func TestForwardTransitions(t *testing.T) {
	path := []DriverStatus{StatusPending, StatusAccepted, StatusPickup, StatusInTransit, StatusDelivered}
	for i := 0; i < len(path)-1; i++ {
		if err := CheckTransition(path[i], path[i+1]); err != nil {
			t.Fatalf("%s -> %s: %v", path[i], path[i+1], err)
		}
	}
	if err := CheckTransition(StatusInTransit, StatusCompleted); err != nil {
		t.Fatalf("in_transit -> completed: %v", err)
	}
}

func TestBackwardAndSkippingTransitionsRejected(t *testing.T) {
	cases := [][2]DriverStatus{
		{StatusInTransit, StatusAccepted},
		{StatusDelivered, StatusInTransit},
		{StatusPending, StatusInTransit},
		{StatusPending, StatusDelivered},
		{StatusAccepted, StatusInTransit},
		{StatusAccepted, StatusAccepted},
	}
	for _, c := range cases {
		err := CheckTransition(c[0], c[1])
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", c[0], c[1], err)
		}
	}
}

func TestCancellationReachableFromNonTerminal(t *testing.T) {
	for _, from := range []DriverStatus{StatusPending, StatusAccepted, StatusPickup, StatusInTransit} {
		if err := CheckTransition(from, StatusCancelled); err != nil {
			t.Fatalf("%s -> cancelled: %v", from, err)
		}
	}
	for _, from := range []DriverStatus{StatusDelivered, StatusCompleted, StatusCancelled} {
		if err := CheckTransition(from, StatusCancelled); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> cancelled: expected ErrInvalidTransition, got %v", from, err)
		}
	}
}

func TestUnknownStatusRejected(t *testing.T) {
	if err := CheckTransition(StatusPending, DriverStatus("teleported")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTrackingEligible(t *testing.T) {
	eligible := map[DriverStatus]bool{
		StatusPending:   false,
		StatusAccepted:  true,
		StatusPickup:    true,
		StatusInTransit: true,
		StatusDelivered: false,
		StatusCompleted: false,
		StatusCancelled: false,
	}
	for s, want := range eligible {
		if got := s.TrackingEligible(); got != want {
			t.Fatalf("%s: TrackingEligible = %v, want %v", s, got, want)
		}
	}
}
