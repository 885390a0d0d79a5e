package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by services, stores and controllers.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("authorization required")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrCapacityExceeded = errors.New("no seats available")

	// ErrTxConflict is returned when a transaction lost an optimistic
	// concurrency race on every permitted attempt. Callers may retry.
	ErrTxConflict = fmt.Errorf("%w: concurrent transaction aborted", ErrConflict)

	ErrInvalidFilter         = errors.New("filter contains invalid field or operator")
	ErrUnsupportedInequality = errors.New("inequality filter is allowed on only one field")

	ErrNotFoundInWishlist = fmt.Errorf("%w: session is not in wishlist", ErrNotFound)
	ErrInvalidKey         = fmt.Errorf("%w: malformed entity key", ErrInvalidInput)
)
