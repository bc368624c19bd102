// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ValidationError covers bad config or time-window input. Terminal,
// surfaced to the caller, never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return "validation: " + e.Msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func NewCampaignNotFound(id int) error {
	return &NotFoundError{Entity: "campaign", ID: id}
}

func NewContactNotFound(id int) error {
	return &NotFoundError{Entity: "contact", ID: id}
}

// InvalidStateError reports an illegal status transition, naming the
// current and requested status. Also returned when a concurrent transition
// wins the conditional update (the loser re-reads and reports what it saw).
type InvalidStateError struct {
	Current   string
	Requested string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.Current, e.Requested)
}

func NewInvalidState(current, requested string) error {
	return &InvalidStateError{Current: current, Requested: requested}
}

// ConflictError means a concurrent writer got there first. The caller may
// re-read and retry with fresh state.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Msg }

func NewConflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// ResourceExhaustedError means the admission limit for a resource class is
// reached. Retryable later.
type ResourceExhaustedError struct {
	ResourceClass string
	Limit         int
	Current       int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("resource class %q exhausted: %d of %d active", e.ResourceClass, e.Current, e.Limit)
}

func NewResourceExhausted(class string, limit, current int) error {
	return &ResourceExhaustedError{ResourceClass: class, Limit: limit, Current: current}
}

// RateLimitedError means the per-second CPS ceiling was hit. Retryable with
// backoff; never a hard failure.
type RateLimitedError struct {
	MaxCPS int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: max %d calls per second", e.MaxCPS)
}

func NewRateLimited(maxCPS int) error {
	return &RateLimitedError{MaxCPS: maxCPS}
}

// AdapterUnavailableError wraps an unreachable downstream (telephony plane,
// rate-counter store). The rate limiter fails open on it; the dial path
// fails the individual dial.
type AdapterUnavailableError struct {
	Adapter string
	Err     error
}

func (e *AdapterUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Adapter, e.Err)
}

func (e *AdapterUnavailableError) Unwrap() error { return e.Err }

func NewAdapterUnavailable(adapter string, err error) error {
	return &AdapterUnavailableError{Adapter: adapter, Err: err}
}

// Predicates used by the HTTP layer and the advance driver to classify
// outcomes.

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsResourceExhausted(err error) bool {
	var e *ResourceExhaustedError
	return errors.As(err, &e)
}

func IsRateLimited(err error) bool {
	var e *RateLimitedError
	return errors.As(err, &e)
}

func IsAdapterUnavailable(err error) bool {
	var e *AdapterUnavailableError
	return errors.As(err, &e)
}

// IsRetryable reports whether the external driver should retry the
// operation with backoff rather than surface it.
func IsRetryable(err error) bool {
	return IsResourceExhausted(err) || IsRateLimited(err) || IsAdapterUnavailable(err)
}
