package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type AttestationMode string

const (
	ModeBasic      AttestationMode = "basic"
	ModeSigned     AttestationMode = "signed"
	ModeVerifiable AttestationMode = "verifiable"
	ModeZK         AttestationMode = "zk"
)

func (m AttestationMode) Valid() bool {
	switch m {
	case ModeBasic, ModeSigned, ModeVerifiable, ModeZK:
		return true
	}
	return false
}

// RequiresSignature reports whether the mode demands cryptographic proof.
func (m AttestationMode) RequiresSignature() bool {
	switch m {
	case ModeSigned, ModeVerifiable, ModeZK:
		return true
	}
	return false
}

// Attestation is the signed-claim block stripped off an operation object
// before verification. Signature carries `algorithm:data` where data is
// base64 for ed25519.
type Attestation struct {
	Mode         AttestationMode       `json:"mode"`
	Timestamp    string                `json:"timestamp,omitempty"`
	Signer       string                `json:"signer,omitempty"`
	Signature    string                `json:"signature,omitempty"`
	Delegation   string                `json:"delegation,omitempty"`
	Claims       map[string]any        `json:"claims,omitempty"`
	Transparency []TransparencyLogEntry `json:"transparency,omitempty"`
}

func (a Attestation) Validate() error {
	mode := a.Mode
	if mode == "" {
		mode = ModeBasic
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: invalid attestation mode %q", ErrInvalidInput, a.Mode)
	}
	if mode.RequiresSignature() {
		if a.Signer == "" {
			return fmt.Errorf("%w: attestation mode %q requires signer", ErrInvalidInput, mode)
		}
		if a.Signature == "" {
			return fmt.Errorf("%w: attestation mode %q requires signature", ErrInvalidInput, mode)
		}
	}
	return nil
}

// SplitSignature splits an `algorithm:data` signature string.
func SplitSignature(signature string) (alg, data string, err error) {
	alg, data, ok := strings.Cut(signature, ":")
	if !ok || alg == "" || data == "" {
		return "", "", fmt.Errorf("%w: malformed signature %q", ErrInvalidInput, signature)
	}
	return alg, data, nil
}

// TransparencyLogEntry is one witness record attached to an attestation.
// Proofs are base64 with an optional "base64:" prefix; root hashes are hex
// with an optional "sha256:" prefix. Immutable per verification call; the
// node order of encoded proofs is significant and preserved as supplied.
type TransparencyLogEntry struct {
	LogID            string `json:"log_id"`
	EntryID          EntryID `json:"entry_id"`
	TreeSize         int64  `json:"tree_size"`
	InclusionProof   string `json:"inclusion_proof"`
	RootHash         string `json:"root_hash,omitempty"`
	ConsistencyProof string `json:"consistency_proof,omitempty"`
	Timestamp        int64  `json:"timestamp,omitempty"`
}

// EntryID tolerates logs that report entry identifiers as JSON numbers.
type EntryID string

func (e *EntryID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = EntryID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*e = EntryID(n.String())
	return nil
}

func (e EntryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(e))
}

// LeafIndex parses the entry identifier as a leaf index, accepting decimal
// or 0x-prefixed hex.
func (e EntryID) LeafIndex() (int64, error) {
	s := string(e)
	var index int64
	var err error
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		index, err = strconv.ParseInt(s[2:], 16, 64)
	} else {
		index, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: entry_id %q is not a leaf index", ErrInvalidInput, s)
	}
	return index, nil
}
