package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:])
	case "sign":
		return runSign(args[2:])
	case "verify":
		return runVerify(args[2:])
	case "resolve":
		return runResolve(args[2:])
	case "serve":
		return runServe(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "genesisgraph"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s keygen [--out-seed <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s sign --in <payload.json> (--seed-hex <hex>|--seed-file <file>) [--signer <did>] [--mode <signed|verifiable>] [--out <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s verify --in <attested.json> [--witness-policy <all|any>] [--insecure-accept-test-signatures] [--allow-placeholder-proofs]\n", name)
	fmt.Fprintf(os.Stderr, "  %s resolve --did <did> [--fragment <#key>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s serve\n", name)
}

// writeOutput sends payload to path, or to stdout with a trailing newline
// when no path is given.
func writeOutput(path string, payload []byte) error {
	if path != "" {
		return os.WriteFile(path, payload, 0o644)
	}
	_, err := os.Stdout.Write(append(payload, '\n'))
	return err
}
