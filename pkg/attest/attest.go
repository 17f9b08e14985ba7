// Package attest builds signed attestation blocks for operation objects. It
// is the producer-side counterpart of the verification service and suitable
// for embedding in pipeline tooling.
package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"genesisgraph/internal/domain"
	cryptoinfra "genesisgraph/internal/infra/crypto"

	"github.com/mr-tron/base58"
)

// ed25519 multicodec identifier, varint-encoded.
const (
	multicodecEd25519Prefix = 0xED
	multicodecEd25519Suffix = 0x01
)

// AttestationField is the key under which the attestation block lives inside
// an operation object. The block is stripped before canonicalization, so the
// signature never covers itself.
const AttestationField = "attestation"

func GenerateKeyPair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return ed25519.GenerateKey(rand.Reader)
}

// DIDKeyForPublicKey derives the did:key identifier for an Ed25519 public
// key: multicodec-prefixed key bytes, base58btc with the "z" multibase
// prefix.
func DIDKeyForPublicKey(publicKey ed25519.PublicKey) (string, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return "", errors.New("invalid ed25519 public key length")
	}
	prefixed := make([]byte, 0, 2+ed25519.PublicKeySize)
	prefixed = append(prefixed, multicodecEd25519Prefix, multicodecEd25519Suffix)
	prefixed = append(prefixed, publicKey...)
	return "did:key:z" + base58.Encode(prefixed), nil
}

// SignPayload canonicalizes the payload and signs it, returning the finished
// attestation block plus the canonical bytes that were signed. The payload
// must not already contain an attestation field.
func SignPayload(payload map[string]any, privateKey ed25519.PrivateKey, signer string, mode domain.AttestationMode) (domain.Attestation, []byte, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return domain.Attestation{}, nil, errors.New("invalid ed25519 private key")
	}
	if signer == "" {
		return domain.Attestation{}, nil, errors.New("signer is required")
	}
	if mode == "" {
		mode = domain.ModeSigned
	}
	if !mode.RequiresSignature() {
		return domain.Attestation{}, nil, fmt.Errorf("mode %q carries no signature", mode)
	}
	if _, exists := payload[AttestationField]; exists {
		return domain.Attestation{}, nil, errors.New("payload already carries an attestation")
	}

	service := cryptoinfra.NewService()
	canonical, err := service.CanonicalizePayload(payload)
	if err != nil {
		return domain.Attestation{}, nil, err
	}
	sig := ed25519.Sign(privateKey, canonical)

	att := domain.Attestation{
		Mode:      mode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Signer:    signer,
		Signature: "ed25519:" + base64.StdEncoding.EncodeToString(sig),
	}
	return att, canonical, nil
}

// Attach returns a copy of the payload with the attestation block embedded.
func Attach(payload map[string]any, att domain.Attestation) (map[string]any, error) {
	raw, err := json.Marshal(att)
	if err != nil {
		return nil, err
	}
	var block map[string]any
	if err := json.Unmarshal(raw, &block); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out[AttestationField] = block
	return out, nil
}

// Strip separates an operation object into the attestation block and the
// signed payload. Objects without an attestation come back with a zero
// Attestation and ok=false.
func Strip(object map[string]any) (domain.Attestation, map[string]any, bool, error) {
	block, present := object[AttestationField]
	payload := make(map[string]any, len(object))
	for k, v := range object {
		if k == AttestationField {
			continue
		}
		payload[k] = v
	}
	if !present {
		return domain.Attestation{}, payload, false, nil
	}

	raw, err := json.Marshal(block)
	if err != nil {
		return domain.Attestation{}, nil, false, err
	}
	var att domain.Attestation
	if err := json.Unmarshal(raw, &att); err != nil {
		return domain.Attestation{}, nil, false, fmt.Errorf("malformed attestation block: %w", err)
	}
	return att, payload, true, nil
}
