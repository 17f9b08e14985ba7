package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"

	"genesisgraph/internal/domain"
)

// Service bundles the canonicalization and Ed25519 primitives behind the
// interface the verification usecases consume.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// CanonicalizePayload produces the canonical bytes of a signed payload: the
// carrier object with its attestation block already removed by the caller.
func (s *Service) CanonicalizePayload(payload any) ([]byte, error) {
	return CanonicalizeAny(payload)
}

// DecodeSignature decodes the data half of an `ed25519:<base64>` signature
// and enforces the Ed25519 signature size.
func (s *Service) DecodeSignature(data string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid signature encoding: %v", domain.ErrInvalidInput, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: invalid ed25519 signature length: %d", domain.ErrInvalidInput, len(sig))
	}
	return sig, nil
}

// VerifyEd25519 reports whether sig is a valid signature over message. A
// false return is an attempted-and-failed outcome, not an error.
func (s *Service) VerifyEd25519(message, sig, pubKey []byte) (bool, error) {
	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: invalid ed25519 public key length: %d", domain.ErrInvalidInput, len(pubKey))
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), message, sig), nil
}
