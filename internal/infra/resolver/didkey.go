package resolver

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"genesisgraph/internal/domain"
)

const (
	// Ed25519 public key multicodec, as the two bytes it occupies on the wire.
	ed25519MulticodecPrefix = 0xED
	ed25519MulticodecSuffix = 0x01

	// maxBase58Length bounds the multibase input to resist decode bombs.
	maxBase58Length = 128

	// maxDecodedBytes rejects decoded values beyond any sane key size.
	maxDecodedBytes = 128

	didKeyPayloadLen = 2 + 32
)

// resolveDIDKey extracts the key embedded in a did:key method identifier:
// z + base58btc(0xED 0x01 || 32-byte public key).
func resolveDIDKey(methodID string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(methodID, "z")
	if !ok {
		prefix := "empty"
		if methodID != "" {
			prefix = fmt.Sprintf("%q", methodID[0])
		}
		return nil, fmt.Errorf("%w: unsupported multibase encoding in did:key: %s", domain.ErrInvalidInput, prefix)
	}
	decoded, err := decodeBase58Bounded(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode did:key: %w", err)
	}
	if len(decoded) < 2 {
		return nil, fmt.Errorf("%w: did:key too short: %d bytes", domain.ErrInvalidInput, len(decoded))
	}
	if decoded[0] != ed25519MulticodecPrefix || decoded[1] != ed25519MulticodecSuffix {
		return nil, fmt.Errorf("%w: unsupported key type in did:key: expected ed25519 (0x%02x%02x), got 0x%02x%02x",
			domain.ErrInvalidInput, ed25519MulticodecPrefix, ed25519MulticodecSuffix, decoded[0], decoded[1])
	}
	if len(decoded) != didKeyPayloadLen {
		return nil, fmt.Errorf("%w: invalid ed25519 key length: %d (expected 32)",
			domain.ErrInvalidInput, len(decoded)-2)
	}
	return decoded[2:], nil
}

// decodeBase58Bounded decodes base58btc with input and output size caps, so
// hostile identifiers and DID documents cannot turn decoding into a DoS.
func decodeBase58Bounded(s string) ([]byte, error) {
	if len(s) > maxBase58Length {
		return nil, fmt.Errorf("%w: base58 string too long: %d (max %d)",
			domain.ErrInvalidInput, len(s), maxBase58Length)
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(decoded) > maxDecodedBytes {
		return nil, fmt.Errorf("%w: decoded base58 value too large: %d bytes (max %d)",
			domain.ErrInvalidInput, len(decoded), maxDecodedBytes)
	}
	return decoded, nil
}
