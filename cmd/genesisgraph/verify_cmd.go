package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	cryptoinfra "genesisgraph/internal/infra/crypto"
	"genesisgraph/internal/infra/resolver"
	"genesisgraph/internal/usecase"
	"genesisgraph/pkg/attest"
)

type verifyOutput struct {
	Receipt        *usecase.AttestationReceipt `json:"receipt"`
	TransparencyOK *bool                       `json:"transparency_ok,omitempty"`
	Trace          []string                    `json:"trace,omitempty"`
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var inPath string
	var witnessPolicy string
	var insecureTestSignatures bool
	var allowPlaceholders bool
	var outPath string
	fs.StringVar(&inPath, "in", "", "attested object JSON path")
	fs.StringVar(&witnessPolicy, "witness-policy", "all", "transparency witness policy (all or any)")
	fs.BoolVar(&insecureTestSignatures, "insecure-accept-test-signatures", false, "accept test-marker signatures without verification (INSECURE)")
	fs.BoolVar(&allowPlaceholders, "allow-placeholder-proofs", false, "accept truncated example proofs without verification (INSECURE)")
	fs.StringVar(&outPath, "out", "", "output JSON path (default stdout)")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(os.Stderr, "verify requires --in")
		return 1
	}

	input, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read attested object: %v\n", err)
		return 1
	}
	var object map[string]any
	if err := json.Unmarshal(input, &object); err != nil {
		fmt.Fprintf(os.Stderr, "parse attested object: %v\n", err)
		return 1
	}
	att, payload, present, err := attest.Strip(object)
	if err != nil {
		fmt.Fprintf(os.Stderr, "strip attestation: %v\n", err)
		return 1
	}
	if !present {
		fmt.Fprintln(os.Stderr, "object carries no attestation")
		return 1
	}

	verifyUC := &usecase.VerifyAttestation{
		Resolver:                     resolver.New(resolver.Config{}),
		Crypto:                       cryptoinfra.NewService(),
		InsecureAcceptTestSignatures: insecureTestSignatures,
	}
	receipt, err := verifyUC.Execute(context.Background(), att, payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "verify attestation: %v\n", err)
		return 1
	}

	out := verifyOutput{Receipt: receipt}
	if len(att.Transparency) > 0 && receipt.Canonical != nil {
		transparencyUC := &usecase.VerifyTransparency{AllowPlaceholderProofs: allowPlaceholders}
		ok, trace, err := transparencyUC.VerifyMultiWitness(att.Transparency, receipt.Canonical, usecase.WitnessPolicy(witnessPolicy))
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify transparency: %v\n", err)
			return 1
		}
		out.TransparencyOK = &ok
		out.Trace = trace
	}

	payloadOut, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal output: %v\n", err)
		return 1
	}
	if err := writeOutput(outPath, payloadOut); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}

	if receipt.Outcome == usecase.OutcomeFailed {
		return 1
	}
	if out.TransparencyOK != nil && !*out.TransparencyOK {
		return 1
	}
	return 0
}
