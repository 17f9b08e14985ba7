package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"genesisgraph/internal/infra/resolver"
)

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var did string
	var fragment string
	fs.StringVar(&did, "did", "", "DID to resolve")
	fs.StringVar(&fragment, "fragment", "", "verification method fragment (did:web only)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if did == "" {
		fmt.Fprintln(os.Stderr, "resolve requires --did")
		return 1
	}

	r := resolver.New(resolver.Config{})
	pubKey, err := r.Resolve(context.Background(), did, fragment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve %s: %v\n", did, err)
		return 1
	}

	payload, err := json.MarshalIndent(map[string]string{
		"did":        did,
		"public_key": hex.EncodeToString(pubKey),
		"key_type":   "Ed25519",
	}, "", "  ")
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
