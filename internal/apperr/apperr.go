// Package apperr defines the error taxonomy shared by the engines.
//
// Handlers map these onto HTTP responses with errors.Is; everything except
// ErrDataIntegrity is a normal, recoverable outcome of a request.
package apperr

import "errors"

var (
	// ErrValidation means the input had a bad shape or value.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness or precondition constraint was hit.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized means the actor does not own the resource it is
	// trying to act on.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDataIntegrity means an invariant is violated in stored data, e.g.
	// a friendship row with identical endpoints. Fatal for the request:
	// the transaction must abort rather than silently continue.
	ErrDataIntegrity = errors.New("data integrity violation")
)
