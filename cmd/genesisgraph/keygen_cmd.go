package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"genesisgraph/pkg/attest"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var outSeed string
	fs.StringVar(&outSeed, "out-seed", "", "write the private key seed (hex) to this file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	pub, priv, err := attest.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key pair: %v\n", err)
		return 1
	}
	did, err := attest.DIDKeyForPublicKey(pub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "derive did: %v\n", err)
		return 1
	}

	seedHex := hex.EncodeToString(priv.Seed())
	if outSeed != "" {
		if err := os.WriteFile(outSeed, []byte(seedHex+"\n"), 0o600); err != nil {
			fmt.Fprintf(os.Stderr, "write seed: %v\n", err)
			return 1
		}
		seedHex = ""
	}

	out := map[string]string{
		"did":        did,
		"public_key": hex.EncodeToString(pub),
	}
	if seedHex != "" {
		out["seed"] = seedHex
	}
	payload, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return 1
	}
	if err := writeOutput("", payload); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
