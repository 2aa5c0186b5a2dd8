package domain

import "fmt"

// DriverStatus is the task's position in the fulfillment state machine.
type DriverStatus string

const (
	StatusPending   DriverStatus = "pending"
	StatusAccepted  DriverStatus = "accepted"
	StatusPickup    DriverStatus = "pickup"
	StatusInTransit DriverStatus = "in_transit"
	StatusDelivered DriverStatus = "delivered"
	StatusCompleted DriverStatus = "completed"
	StatusCancelled DriverStatus = "cancelled"
)

// transitions is the legal forward edge set. Cancellation is handled
// separately because it is reachable from every non-terminal status.
var transitions = map[DriverStatus][]DriverStatus{
	StatusPending:   {StatusAccepted},
	StatusAccepted:  {StatusPickup},
	StatusPickup:    {StatusInTransit},
	StatusInTransit: {StatusDelivered, StatusCompleted},
}

// Valid reports whether s is a known status value.
func (s DriverStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusPickup, StatusInTransit,
		StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s DriverStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// TrackingEligible reports whether a task in status s keeps location
// reporting alive: owned and not yet terminal.
func (s DriverStatus) TrackingEligible() bool {
	switch s {
	case StatusAccepted, StatusPickup, StatusInTransit:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to DriverStatus) bool {
	if to == StatusCancelled {
		return !from.Terminal()
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition validates from -> to and wraps ErrInvalidTransition with
// both endpoints when the edge is not in the graph.
func CheckTransition(from, to DriverStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
