package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"genesisgraph/internal/domain"
)

// KeyResolver resolves a signer identifier to a raw Ed25519 public key.
type KeyResolver interface {
	Resolve(ctx context.Context, did string, keyFragment string) ([]byte, error)
}

// CryptoService is the canonicalization + signature primitive surface.
type CryptoService interface {
	CanonicalizePayload(payload any) ([]byte, error)
	DecodeSignature(data string) ([]byte, error)
	VerifyEd25519(message, sig, pubKey []byte) (bool, error)
}

// Verification steps, reported so a caller knows exactly where a signature
// check stopped.
const (
	StepResolve = "resolve"
	StepEncode  = "encode"
	StepDecode  = "decode"
	StepVerify  = "verify"
)

// Attestation verification outcomes.
const (
	OutcomeVerified       = "verified"
	OutcomeFailed         = "failed"
	OutcomeSkipped        = "skipped"
	OutcomeNotImplemented = "not_implemented"
	OutcomeBypassed       = "bypassed"
)

// testSignatureMarker is the escape-hatch prefix on signature data that
// skips cryptographic verification. Only honored when the usecase is
// explicitly configured insecure; see VerifyAttestation.InsecureAcceptTestSignatures.
const testSignatureMarker = "mock:"

type AttestationReceipt struct {
	Mode           domain.AttestationMode `json:"mode"`
	Signer         string                 `json:"signer,omitempty"`
	Algorithm      string                 `json:"algorithm,omitempty"`
	SignatureValid bool                   `json:"signature_valid"`
	Outcome        string                 `json:"outcome"`
	FailedStep     string                 `json:"failed_step,omitempty"`
	Message        string                 `json:"message,omitempty"`

	// Canonical is the canonical encoding of the signed payload, reusable as
	// transparency-log leaf data. Not part of the wire receipt.
	Canonical []byte `json:"-"`
}

// VerifyAttestation checks one attestation against one signed payload: the
// carrier object with its attestation block already stripped. It holds no
// state between calls.
type VerifyAttestation struct {
	Resolver KeyResolver
	Crypto   CryptoService
	Logger   *slog.Logger

	// InsecureAcceptTestSignatures honors the test-marker bypass. Never
	// enable outside tests and demos; every use is logged loudly.
	InsecureAcceptTestSignatures bool
}

func (uc *VerifyAttestation) Execute(ctx context.Context, att domain.Attestation, signedPayload any) (*AttestationReceipt, error) {
	if err := att.Validate(); err != nil {
		return nil, err
	}

	mode := att.Mode
	if mode == "" {
		mode = domain.ModeBasic
	}
	receipt := &AttestationReceipt{Mode: mode, Signer: att.Signer}

	if !mode.RequiresSignature() {
		receipt.Outcome = OutcomeSkipped
		receipt.Message = "attestation mode carries no signature to verify"
		return receipt, nil
	}

	alg, data, err := domain.SplitSignature(att.Signature)
	if err != nil {
		return nil, err
	}
	receipt.Algorithm = alg

	switch alg {
	case "ed25519":
	case "ecdsa", "rsa":
		// Format-valid, verification not implemented. Distinct from failure.
		receipt.Outcome = OutcomeNotImplemented
		receipt.Message = fmt.Sprintf("%s signature verification not yet implemented", alg)
		return receipt, nil
	default:
		return nil, fmt.Errorf("%w: unsupported signature algorithm: %q", domain.ErrInvalidInput, alg)
	}

	if strings.HasPrefix(data, testSignatureMarker) {
		if !uc.InsecureAcceptTestSignatures {
			return nil, fmt.Errorf("%w: test signature marker present but insecure mode is not enabled",
				domain.ErrInvalidInput)
		}
		uc.logger().Warn("INSECURE: accepting test-marker signature without cryptographic verification",
			"signer", att.Signer, "mode", string(mode))
		receipt.Outcome = OutcomeBypassed
		receipt.SignatureValid = true
		receipt.Message = "test-marker signature accepted without verification"
		return receipt, nil
	}

	pubKey, err := uc.Resolver.Resolve(ctx, att.Signer, "")
	if err != nil {
		receipt.FailedStep = StepResolve
		return receipt, fmt.Errorf("resolve signer %q: %w", att.Signer, err)
	}

	canonical, err := uc.Crypto.CanonicalizePayload(signedPayload)
	if err != nil {
		receipt.FailedStep = StepEncode
		return receipt, fmt.Errorf("canonicalize signed payload: %w", err)
	}
	receipt.Canonical = canonical

	sig, err := uc.Crypto.DecodeSignature(data)
	if err != nil {
		receipt.FailedStep = StepDecode
		return receipt, fmt.Errorf("decode signature: %w", err)
	}

	ok, err := uc.Crypto.VerifyEd25519(canonical, sig, pubKey)
	if err != nil {
		receipt.FailedStep = StepVerify
		return receipt, fmt.Errorf("verify signature: %w", err)
	}
	if !ok {
		receipt.Outcome = OutcomeFailed
		receipt.FailedStep = StepVerify
		receipt.Message = "signature verification failed"
		return receipt, nil
	}

	receipt.Outcome = OutcomeVerified
	receipt.SignatureValid = true
	return receipt, nil
}

func (uc *VerifyAttestation) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
