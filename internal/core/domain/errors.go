package domain

import "errors"

var (
	// ErrNotAuthorized means the caller is not the creator or session owner
	// the operation requires.
	ErrNotAuthorized = errors.New("caller not authorized")

	// ErrInvalidState means the operation is not permitted from the stream's
	// current lifecycle status.
	ErrInvalidState = errors.New("operation not permitted in current state")

	// ErrInsufficientPayment means the supplied payment is below the
	// required price.
	ErrInsufficientPayment = errors.New("payment below required price")

	// ErrInvalidQuality means a quality tier above the supported maximum or
	// outside the stream's offered set.
	ErrInvalidQuality = errors.New("unsupported quality level")

	ErrStreamNotFound  = errors.New("stream not found")
	ErrSessionNotFound = errors.New("viewer session not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrBalanceOverflow = errors.New("balance overflow")
)
