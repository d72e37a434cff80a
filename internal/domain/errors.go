package domain

import "errors"

// Domain error taxonomy. Handlers map these onto the HTTP envelope;
// services wrap them with context via fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks malformed input, rejected before touching state.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks an unknown user, room, or gift.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance marks a spend attempt exceeding the balance.
	// The operation performs no mutation.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNotConfigured marks a withdrawal without a saved withdrawal method.
	ErrNotConfigured = errors.New("withdrawal method not configured")

	// ErrSignalingFailure marks a media negotiation that exhausted its
	// retry budget. Transient failures are retried internally first.
	ErrSignalingFailure = errors.New("signaling failure")
)
