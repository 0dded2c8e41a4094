// Package common defines sentinel errors shared by the sync engine, the
// storage layers and the HTTP surface. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrNotFound        = errors.New("not found")
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// Upstream source errors. Adapters wrap transport and non-2xx failures
	// with ErrUpstream so the sync service can tell a failed fetch from a
	// genuinely empty one.
	ErrUpstream = errors.New("upstream failure")

	// Query errors.
	ErrInvalidFilter = errors.New("invalid filter")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Startup errors.
	ErrMissingConfig = errors.New("missing required configuration")

	ErrUnknownCollection = errors.New("unknown collection")
)
