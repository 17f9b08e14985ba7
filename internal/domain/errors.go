package domain

import "errors"

var (
	// ErrInvalidInput covers malformed identifiers, oversized fields and bad
	// formats. Surfaced immediately, never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrResolution covers DID resolution failures, including network errors
	// and timeouts. No automatic retry at this layer.
	ErrResolution = errors.New("did resolution failed")

	// ErrSecurityPolicy covers blocked hosts and TLS/redirect/content-type/size
	// violations. Always fatal to the resolution that triggered it.
	ErrSecurityPolicy = errors.New("security policy violation")

	// ErrRateLimited is a security-policy failure with its own identity so
	// callers can distinguish throttling from blocklisting.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrEncoding means a value could not be canonically encoded.
	ErrEncoding = errors.New("canonical encoding failed")

	// ErrProofStructure means a Merkle proof could not be attempted: bad
	// bounds, wrong hash lengths, wrong proof size. Distinct from a proof that
	// was attempted and did not verify, which is a value result.
	ErrProofStructure = errors.New("invalid proof structure")

	// ErrNotImplemented marks recognized-but-unsupported signature algorithms.
	ErrNotImplemented = errors.New("not implemented")

	ErrNotFound = errors.New("not found")
)
