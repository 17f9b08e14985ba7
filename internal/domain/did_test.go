package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseDID(t *testing.T) {
	did, err := ParseDID("did:key:z6Mk")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if did.Method != MethodKey || did.MethodID != "z6Mk" {
		t.Fatalf("parsed: %+v", did)
	}

	did, err = ParseDID("did:web:example.com:users:alice")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if did.Method != MethodWeb || did.MethodID != "example.com:users:alice" {
		t.Fatalf("parsed: %+v", did)
	}
}

func TestParseDID_Rejections(t *testing.T) {
	cases := []string{
		"",
		"key:z6Mk",
		"did:",
		"did:key",
		"did:key:",
		"did:ethr:0xabc",
		"DID:key:z6Mk",
		"did:web:" + strings.Repeat("a", MaxDIDLength),
	}
	for _, input := range cases {
		if _, err := ParseDID(input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %q: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestDIDMethod_String(t *testing.T) {
	if MethodKey.String() != "key" || MethodWeb.String() != "web" {
		t.Fatal("method names changed")
	}
	if DIDMethod(0).String() != "unknown" {
		t.Fatal("zero method must stringify as unknown")
	}
}
