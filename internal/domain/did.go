package domain

import (
	"fmt"
	"strings"
)

// MaxDIDLength bounds identifier size before any parsing work happens.
const MaxDIDLength = 512

// DIDMethod is a closed enum: adding a method is a compile-time variant
// addition, not a new string branch.
type DIDMethod int

const (
	MethodKey DIDMethod = iota + 1
	MethodWeb
)

func (m DIDMethod) String() string {
	switch m {
	case MethodKey:
		return "key"
	case MethodWeb:
		return "web"
	}
	return "unknown"
}

// DID is a parsed decentralized identifier. Immutable once parsed.
type DID struct {
	Raw      string
	Method   DIDMethod
	MethodID string
}

// ParseDID validates shape and method before any resolution work.
func ParseDID(did string) (DID, error) {
	if len(did) > MaxDIDLength {
		return DID{}, fmt.Errorf("%w: did too long: %d (max %d)", ErrInvalidInput, len(did), MaxDIDLength)
	}
	rest, ok := strings.CutPrefix(did, "did:")
	if !ok {
		return DID{}, fmt.Errorf("%w: invalid did format: %q", ErrInvalidInput, did)
	}
	method, id, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return DID{}, fmt.Errorf("%w: invalid did format: %q", ErrInvalidInput, did)
	}
	switch method {
	case "key":
		return DID{Raw: did, Method: MethodKey, MethodID: id}, nil
	case "web":
		return DID{Raw: did, Method: MethodWeb, MethodID: id}, nil
	}
	return DID{}, fmt.Errorf("%w: unsupported did method: %q", ErrInvalidInput, method)
}
