// Package pickup implements the pickup lifecycle: who may move a pickup
// between statuses, how transitions are persisted, and how both parties
// are kept in sync.
package pickup

import (
	"errors"
	"fmt"
	"time"
)

// ErrVersionConflict is returned by a PickupStore when a compare-and-swap
// write lost against a concurrent mutation of the same pickup.
var ErrVersionConflict = errors.New("pickup was modified concurrently")

type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ForbiddenError covers both "not a party to this pickup" and "wrong role
// for the requested transition".
type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg == "" {
		return "forbidden"
	}
	return e.Msg
}

// WrongStateError denies a transition that is not in the lifecycle table
// for the pickup's current status.
type WrongStateError struct {
	Current   string
	Requested string
}

func (e WrongStateError) Error() string {
	if e.Requested == "" {
		return fmt.Sprintf("not allowed while status is %s", e.Current)
	}
	return fmt.Sprintf("cannot move from %s to %s", e.Current, e.Requested)
}

// LeadTimeError denies a cancellation attempted inside the no-cancel window
// before the scheduled pickup time.
type LeadTimeError struct {
	Window time.Duration
}

func (e LeadTimeError) Error() string {
	return fmt.Sprintf("cancellation requires more than %s before the scheduled pickup time", e.Window)
}

// TerminalError denies any mutation of a completed or cancelled pickup.
type TerminalError struct {
	Status string
}

func (e TerminalError) Error() string {
	return fmt.Sprintf("pickup is already %s", e.Status)
}

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// StoreError wraps a transient storage failure. Callers may retry; every
// other error in this package is a definitive answer.
type StoreError struct {
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("store unavailable: %v", e.Err)
}

func (e StoreError) Unwrap() error { return e.Err }
