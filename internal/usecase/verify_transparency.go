package usecase

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"genesisgraph/internal/domain"
	"genesisgraph/internal/infra/merkle"
)

const (
	maxLogIDLength   = 256
	maxEntryIDLength = 128

	// maxProofBytes caps a decoded inclusion proof at 1 MB.
	maxProofBytes = 1 << 20

	// placeholderSuffix marks illustrative proofs in documentation examples.
	placeholderSuffix = "..."
)

// WitnessPolicy decides how many independent witnesses must verify. There is
// no default on purpose: the caller owns this security decision.
type WitnessPolicy string

const (
	// WitnessAll requires every transparency entry to verify.
	WitnessAll WitnessPolicy = "all"
	// WitnessAny requires at least one entry to verify (quorum-of-one).
	WitnessAny WitnessPolicy = "any"
)

// VerifyTransparency checks transparency-log entries attached to an
// attestation against the canonical bytes of the signed payload. Stateless;
// every call is independent.
type VerifyTransparency struct {
	Logger *slog.Logger

	// AllowPlaceholderProofs accepts `...`-truncated example proofs without
	// cryptographic checking. Documentation mode only; loudly logged.
	AllowPlaceholderProofs bool
}

// VerifyEntry validates one entry and, when a root hash is supplied, checks
// the inclusion proof. The bool is the verification verdict; the messages
// describe every problem found.
func (uc *VerifyTransparency) VerifyEntry(entry domain.TransparencyLogEntry, leafData []byte) (bool, []string) {
	var errs []string

	if entry.LogID == "" {
		return false, []string{"missing log_id in transparency entry"}
	}
	if len(entry.LogID) > maxLogIDLength {
		return false, []string{fmt.Sprintf("log_id too long: %d (max %d)", len(entry.LogID), maxLogIDLength)}
	}
	if entry.EntryID == "" {
		return false, []string{"missing entry_id in transparency entry"}
	}
	if len(entry.EntryID) > maxEntryIDLength {
		return false, []string{fmt.Sprintf("entry_id too long: %d (max %d)", len(entry.EntryID), maxEntryIDLength)}
	}
	if entry.TreeSize <= 0 {
		return false, []string{fmt.Sprintf("invalid tree_size: %d", entry.TreeSize)}
	}
	if entry.InclusionProof == "" {
		return false, []string{"missing inclusion_proof"}
	}

	if strings.HasSuffix(entry.InclusionProof, placeholderSuffix) {
		if !uc.AllowPlaceholderProofs {
			return false, []string{"placeholder proof present but placeholder mode is not enabled"}
		}
		uc.logger().Warn("INSECURE: accepting placeholder transparency proof without verification",
			"log_id", entry.LogID)
		return true, nil
	}

	proofNodes, err := decodeProofNodes(entry.InclusionProof)
	if err != nil {
		return false, []string{err.Error()}
	}

	if entry.RootHash == "" {
		// Without an expected root there is nothing to check the proof
		// against; structural validation above is all that can be done.
		return true, nil
	}

	rootHash, err := decodeRootHash(entry.RootHash)
	if err != nil {
		return false, []string{err.Error()}
	}
	leafIndex, err := entry.EntryID.LeafIndex()
	if err != nil {
		return false, []string{err.Error()}
	}

	leafHash := merkle.HashLeaf(leafData)
	ok, err := merkle.VerifyInclusion(leafHash, entry.TreeSize, leafIndex, proofNodes, rootHash)
	if err != nil {
		errs = append(errs, err.Error())
		return false, errs
	}
	if !ok {
		errs = append(errs, "inclusion proof verification failed")
		return false, errs
	}
	return true, nil
}

// VerifyMultiWitness evaluates every entry independently, never stopping at
// the first failure, and applies the witness policy to the results. The
// returned messages form a per-witness audit trace.
func (uc *VerifyTransparency) VerifyMultiWitness(entries []domain.TransparencyLogEntry, leafData []byte, policy WitnessPolicy) (bool, []string, error) {
	switch policy {
	case WitnessAll, WitnessAny:
	default:
		return false, nil, fmt.Errorf("%w: witness policy must be %q or %q", domain.ErrInvalidInput, WitnessAll, WitnessAny)
	}

	if len(entries) == 0 {
		return true, []string{"no transparency entries to verify"}, nil
	}

	messages := []string{fmt.Sprintf("verifying %d transparency witness(es)", len(entries))}
	passed := 0
	for i, entry := range entries {
		logID := entry.LogID
		if logID == "" {
			logID = "UNKNOWN"
		}
		ok, errs := uc.VerifyEntry(entry, leafData)
		if ok {
			passed++
			messages = append(messages, fmt.Sprintf("  PASS [log %d/%d: %s]", i+1, len(entries), logID))
			continue
		}
		messages = append(messages, fmt.Sprintf("  FAIL [log %d/%d: %s]", i+1, len(entries), logID))
		for _, e := range errs {
			messages = append(messages, "    - "+e)
		}
	}

	var ok bool
	if policy == WitnessAll {
		ok = passed == len(entries)
	} else {
		ok = passed > 0
	}
	messages = append(messages, fmt.Sprintf("%d/%d witness(es) verified, policy=%s", passed, len(entries), policy))
	return ok, messages, nil
}

func decodeProofNodes(encoded string) ([][]byte, error) {
	encoded = strings.TrimPrefix(encoded, "base64:")
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inclusion proof: %v", err)
	}
	if len(raw) > maxProofBytes {
		return nil, fmt.Errorf("proof too large: %d bytes (max %d)", len(raw), maxProofBytes)
	}
	if len(raw)%merkle.HashSize != 0 {
		return nil, fmt.Errorf("proof length not a multiple of %d: %d", merkle.HashSize, len(raw))
	}
	nodes := make([][]byte, 0, len(raw)/merkle.HashSize)
	for i := 0; i < len(raw); i += merkle.HashSize {
		nodes = append(nodes, raw[i:i+merkle.HashSize])
	}
	return nodes, nil
}

func decodeRootHash(encoded string) ([]byte, error) {
	encoded = strings.TrimPrefix(encoded, "sha256:")
	root, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid root_hash: %v", err)
	}
	return root, nil
}

func (uc *VerifyTransparency) logger() *slog.Logger {
	if uc.Logger != nil {
		return uc.Logger
	}
	return slog.Default()
}
