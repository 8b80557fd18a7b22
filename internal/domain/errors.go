package domain

import "errors"

var (
	// ErrSubscriptionClosed is returned when the marketplace event stream ends
	ErrSubscriptionClosed = errors.New("event subscription closed")

	// ErrUnknownEvent is returned when a log does not match any marketplace event
	ErrUnknownEvent = errors.New("unknown marketplace event")

	// ErrInvalidSlot is returned when an on-chain slot read returns an unusable record
	ErrInvalidSlot = errors.New("invalid on-chain slot")

	// ErrInvalidAddress is returned when a string is not a hex encoded address
	ErrInvalidAddress = errors.New("invalid address")
)
