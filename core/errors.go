package core

import "errors"

var (
	// ErrUpstreamAuth means the identity (token) exchange for the catalog failed.
	ErrUpstreamAuth = errors.New("upstream auth failed")
	// ErrUpstreamCatalog means the catalog API answered with a non-success status or was unreachable.
	ErrUpstreamCatalog = errors.New("upstream catalog failed")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthorized    = errors.New("unauthorized")
	// ErrDuplicate is returned when a game is already in the user's collection.
	ErrDuplicate = errors.New("game already in collection")
	ErrNotFound  = errors.New("not found")
)
