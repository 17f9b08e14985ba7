package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"genesisgraph/internal/domain"
	"genesisgraph/pkg/attest"
)

func runSign(args []string) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var seedHex string
	var seedFile string
	var signer string
	var mode string
	var outPath string
	fs.StringVar(&inPath, "in", "", "payload JSON path")
	fs.StringVar(&seedHex, "seed-hex", "", "ed25519 private key seed, hex")
	fs.StringVar(&seedFile, "seed-file", "", "file containing the seed hex")
	fs.StringVar(&signer, "signer", "", "signer DID (default: did:key derived from the seed)")
	fs.StringVar(&mode, "mode", "signed", "attestation mode (signed or verifiable)")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "sign requires --in")
		return 1
	}
	if seedHex == "" && seedFile == "" {
		fmt.Fprintln(os.Stderr, "sign requires --seed-hex or --seed-file")
		return 1
	}
	if seedFile != "" {
		raw, err := os.ReadFile(seedFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read seed file: %v\n", err)
			return 1
		}
		seedHex = strings.TrimSpace(string(raw))
	}

	seed, err := hex.DecodeString(seedHex)
	if err != nil || len(seed) != ed25519.SeedSize {
		fmt.Fprintln(os.Stderr, "seed must be 32 bytes of hex")
		return 1
	}
	privateKey := ed25519.NewKeyFromSeed(seed)

	if signer == "" {
		signer, err = attest.DIDKeyForPublicKey(privateKey.Public().(ed25519.PublicKey))
		if err != nil {
			fmt.Fprintf(os.Stderr, "derive signer did: %v\n", err)
			return 1
		}
	}

	input, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read payload: %v\n", err)
		return 1
	}
	var payload map[string]any
	if err := json.Unmarshal(input, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "parse payload: %v\n", err)
		return 1
	}

	att, _, err := attest.SignPayload(payload, privateKey, signer, domain.AttestationMode(mode))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign payload: %v\n", err)
		return 1
	}
	attested, err := attest.Attach(payload, att)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attach attestation: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(attested, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
