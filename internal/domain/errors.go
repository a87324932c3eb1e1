package domain

import "errors"

// Error taxonomy surfaced by services. Handlers map these onto HTTP
// statuses; everything else is treated as an internal failure.
var (
	// ErrUnauthorized indicates no resolvable identity for the request.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates malformed numeric or date input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRateLimited indicates the request budget was exhausted.
	ErrRateLimited = errors.New("too many requests")

	// ErrUpstream indicates a collaborator (receipt extraction) failure.
	ErrUpstream = errors.New("upstream failure")

	// ErrAlreadySeeded indicates demo data was already generated for the account.
	ErrAlreadySeeded = errors.New("account already seeded")
)
