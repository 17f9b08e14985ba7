package usecase

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mr-tron/base58"

	"genesisgraph/internal/domain"
	cryptoinfra "genesisgraph/internal/infra/crypto"
	"genesisgraph/internal/infra/resolver"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSignedPayload(t *testing.T) (domain.Attestation, map[string]any, ed25519.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	signer := "did:key:z" + base58.Encode(append([]byte{0xED, 0x01}, pub...))

	payload := map[string]any{
		"id":      "op1",
		"inputs":  []any{"a"},
		"outputs": []any{"b"},
	}
	canonical, err := cryptoinfra.CanonicalizeAny(payload)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	sig := ed25519.Sign(priv, canonical)

	att := domain.Attestation{
		Mode:      domain.ModeSigned,
		Signer:    signer,
		Signature: "ed25519:" + base64.StdEncoding.EncodeToString(sig),
	}
	return att, payload, pub
}

func newVerifier() *VerifyAttestation {
	return &VerifyAttestation{
		Resolver: resolver.New(resolver.Config{}),
		Crypto:   cryptoinfra.NewService(),
		Logger:   quietLogger(),
	}
}

func TestVerifyAttestation_EndToEnd(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	uc := newVerifier()

	receipt, err := uc.Execute(context.Background(), att, payload)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Outcome != OutcomeVerified {
		t.Fatalf("outcome: got %q, want %q (%s)", receipt.Outcome, OutcomeVerified, receipt.Message)
	}
	if !receipt.SignatureValid {
		t.Fatal("signature must be valid")
	}
	if receipt.Algorithm != "ed25519" {
		t.Fatalf("algorithm: got %q", receipt.Algorithm)
	}
	if len(receipt.Canonical) == 0 {
		t.Fatal("receipt must carry the canonical payload bytes")
	}
}

func TestVerifyAttestation_TamperedFieldsFail(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	uc := newVerifier()

	for _, field := range []string{"id", "inputs", "outputs"} {
		t.Run(field, func(t *testing.T) {
			tampered := map[string]any{}
			for k, v := range payload {
				tampered[k] = v
			}
			tampered[field] = "changed"

			receipt, err := uc.Execute(context.Background(), att, tampered)
			if err != nil {
				t.Fatalf("execute: %v", err)
			}
			if receipt.Outcome != OutcomeFailed {
				t.Fatalf("outcome: got %q, want %q", receipt.Outcome, OutcomeFailed)
			}
			if receipt.SignatureValid {
				t.Fatal("tampered payload must not validate")
			}
			if receipt.FailedStep != StepVerify {
				t.Fatalf("failed step: got %q, want %q", receipt.FailedStep, StepVerify)
			}
		})
	}
}

func TestVerifyAttestation_AddedFieldFails(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	payload["extra"] = true

	receipt, err := newVerifier().Execute(context.Background(), att, payload)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Outcome != OutcomeFailed {
		t.Fatalf("outcome: got %q, want %q", receipt.Outcome, OutcomeFailed)
	}
}

func TestVerifyAttestation_BasicModeSkipped(t *testing.T) {
	receipt, err := newVerifier().Execute(context.Background(),
		domain.Attestation{Mode: domain.ModeBasic}, map[string]any{"id": "op1"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Outcome != OutcomeSkipped {
		t.Fatalf("outcome: got %q, want %q", receipt.Outcome, OutcomeSkipped)
	}
	if receipt.SignatureValid {
		t.Fatal("skipped attestations carry no validated signature")
	}
}

func TestVerifyAttestation_EmptyModeDefaultsToBasic(t *testing.T) {
	receipt, err := newVerifier().Execute(context.Background(),
		domain.Attestation{}, map[string]any{"id": "op1"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Mode != domain.ModeBasic {
		t.Fatalf("mode: got %q, want %q", receipt.Mode, domain.ModeBasic)
	}
	if receipt.Outcome != OutcomeSkipped {
		t.Fatalf("outcome: got %q", receipt.Outcome)
	}
}

func TestVerifyAttestation_ValidationErrors(t *testing.T) {
	uc := newVerifier()
	cases := []struct {
		name string
		att  domain.Attestation
	}{
		{"unknown mode", domain.Attestation{Mode: "turbo"}},
		{"signed without signer", domain.Attestation{Mode: domain.ModeSigned, Signature: "ed25519:AA=="}},
		{"signed without signature", domain.Attestation{Mode: domain.ModeSigned, Signer: "did:key:zX"}},
		{"malformed signature", domain.Attestation{Mode: domain.ModeSigned, Signer: "did:key:zX", Signature: "nocolon"}},
		{"unsupported algorithm", domain.Attestation{Mode: domain.ModeSigned, Signer: "did:key:zX", Signature: "hmac:AA=="}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := uc.Execute(context.Background(), tc.att, map[string]any{"id": "op1"}); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVerifyAttestation_RecognizedAlgorithmsNotImplemented(t *testing.T) {
	uc := newVerifier()
	for _, alg := range []string{"ecdsa", "rsa"} {
		att := domain.Attestation{
			Mode:      domain.ModeSigned,
			Signer:    "did:key:zX",
			Signature: alg + ":AAAA",
		}
		receipt, err := uc.Execute(context.Background(), att, map[string]any{"id": "op1"})
		if err != nil {
			t.Fatalf("%s: execute: %v", alg, err)
		}
		if receipt.Outcome != OutcomeNotImplemented {
			t.Fatalf("%s: outcome: got %q, want %q", alg, receipt.Outcome, OutcomeNotImplemented)
		}
		if receipt.SignatureValid {
			t.Fatalf("%s: unimplemented algorithms never validate", alg)
		}
	}
}

func TestVerifyAttestation_TruncatedSignature(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	_, data, _ := domain.SplitSignature(att.Signature)
	raw, _ := base64.StdEncoding.DecodeString(data)
	att.Signature = "ed25519:" + base64.StdEncoding.EncodeToString(raw[:32])

	receipt, err := newVerifier().Execute(context.Background(), att, payload)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if receipt == nil || receipt.FailedStep != StepDecode {
		t.Fatalf("expected decode step failure, got %+v", receipt)
	}
}

func TestVerifyAttestation_ResolverFailureTagged(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	att.Signer = "did:key:zinvalid"

	receipt, err := newVerifier().Execute(context.Background(), att, payload)
	if err == nil {
		t.Fatal("expected resolution error")
	}
	if receipt == nil || receipt.FailedStep != StepResolve {
		t.Fatalf("expected resolve step failure, got %+v", receipt)
	}
}

func TestVerifyAttestation_TestMarkerRequiresOptIn(t *testing.T) {
	att := domain.Attestation{
		Mode:      domain.ModeSigned,
		Signer:    "did:key:zX",
		Signature: "ed25519:mock:signature",
	}
	payload := map[string]any{"id": "op1"}

	uc := newVerifier()
	if _, err := uc.Execute(context.Background(), att, payload); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without opt-in, got %v", err)
	}

	uc.InsecureAcceptTestSignatures = true
	receipt, err := uc.Execute(context.Background(), att, payload)
	if err != nil {
		t.Fatalf("execute with opt-in: %v", err)
	}
	if receipt.Outcome != OutcomeBypassed {
		t.Fatalf("outcome: got %q, want %q", receipt.Outcome, OutcomeBypassed)
	}
	if !receipt.SignatureValid {
		t.Fatal("bypassed signatures are reported as accepted")
	}
}

func TestVerifyAttestation_WrongSignerKeyFails(t *testing.T) {
	att, payload, _ := newSignedPayload(t)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	att.Signer = "did:key:z" + base58.Encode(append([]byte{0xED, 0x01}, otherPub...))

	receipt, err := newVerifier().Execute(context.Background(), att, payload)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if receipt.Outcome != OutcomeFailed {
		t.Fatalf("outcome: got %q, want %q", receipt.Outcome, OutcomeFailed)
	}
}

func TestVerifyAttestation_SignatureNotCoveredBySelf(t *testing.T) {
	// The attestation block is stripped before signing, so two attestations
	// over the same payload verify independently of each other's contents.
	att1, payload, _ := newSignedPayload(t)
	att2 := att1
	att2.Timestamp = "2026-01-01T00:00:00Z"

	uc := newVerifier()
	for i, att := range []domain.Attestation{att1, att2} {
		receipt, err := uc.Execute(context.Background(), att, payload)
		if err != nil {
			t.Fatalf("attestation %d: %v", i, err)
		}
		if receipt.Outcome != OutcomeVerified {
			t.Fatalf("attestation %d: outcome %q", i, receipt.Outcome)
		}
	}
}
