package crypto

import (
	"bytes"
	"errors"
	"testing"

	"genesisgraph/internal/domain"
)

func TestCanonicalizeJSON_SortsKeysRecursively(t *testing.T) {
	input := []byte(`{"z": 1, "a": {"y": true, "b": null}, "m": [3, 2]}`)
	expected := `{"a":{"b":null,"y":true},"m":[3,2],"z":1}`

	actual, err := CanonicalizeJSON(input)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(actual) != expected {
		t.Fatalf("canonical bytes mismatch:\n got %s\nwant %s", actual, expected)
	}
}

func TestCanonicalizeJSON_InsertionOrderIndependent(t *testing.T) {
	a := []byte(`{"id": "op1", "inputs": ["a"], "outputs": ["b"]}`)
	b := []byte(`{"outputs": ["b"], "id": "op1", "inputs": ["a"]}`)

	ca, err := CanonicalizeJSON(a)
	if err != nil {
		t.Fatalf("canonicalize a: %v", err)
	}
	cb, err := CanonicalizeJSON(b)
	if err != nil {
		t.Fatalf("canonicalize b: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical forms differ:\n a: %s\n b: %s", ca, cb)
	}
}

func TestCanonicalizeJSON_Idempotent(t *testing.T) {
	input := []byte(`{"nested": {"list": [1, 2.5, "x"], "flag": false}, "n": -0.25}`)

	once, err := CanonicalizeJSON(input)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := CanonicalizeJSON(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("canonicalization not idempotent:\n once:  %s\n twice: %s", once, twice)
	}
}

func TestCanonicalizeJSON_NumberFormats(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"integer", `10`, `10`},
		{"integer valued float", `10.0`, `10`},
		{"negative zero", `-0`, `0`},
		{"fraction", `0.5`, `0.5`},
		{"small fraction", `0.0000001`, `1e-7`},
		{"large integer", `1e21`, `1e+21`},
		{"large but plain", `100000000000000000000`, `100000000000000000000`},
		{"negative", `-1.5`, `-1.5`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := CanonicalizeJSON([]byte(tc.input))
			if err != nil {
				t.Fatalf("canonicalize %q: %v", tc.input, err)
			}
			if string(actual) != tc.want {
				t.Fatalf("number %q: got %s, want %s", tc.input, actual, tc.want)
			}
		})
	}
}

func TestCanonicalizeJSON_StringEscapes(t *testing.T) {
	actual, err := CanonicalizeJSON([]byte("{\"k\": \"line\\nbreak\\ttab \\u0001\"}"))
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"k":"line\nbreak\ttab \u0001"}`
	if string(actual) != want {
		t.Fatalf("escape mismatch: got %s, want %s", actual, want)
	}
}

func TestCanonicalizeJSON_RejectsMalformed(t *testing.T) {
	for _, input := range []string{``, `{`, `{"a": 1} trailing`, `{"a": }`} {
		if _, err := CanonicalizeJSON([]byte(input)); err == nil {
			t.Fatalf("expected error for input %q", input)
		} else if !errors.Is(err, domain.ErrEncoding) {
			t.Fatalf("expected ErrEncoding for %q, got %v", input, err)
		}
	}
}

func TestCanonicalizeAny_StructRoundTrip(t *testing.T) {
	type op struct {
		ID      string   `json:"id"`
		Inputs  []string `json:"inputs,omitempty"`
		Outputs []string `json:"outputs,omitempty"`
	}
	actual, err := CanonicalizeAny(op{ID: "op1", Inputs: []string{"a"}})
	if err != nil {
		t.Fatalf("canonicalize struct: %v", err)
	}
	want := `{"id":"op1","inputs":["a"]}`
	if string(actual) != want {
		t.Fatalf("struct canonical form: got %s, want %s", actual, want)
	}
}

func TestCanonicalizeAny_RejectsNonFinite(t *testing.T) {
	if _, err := CanonicalizeAny(map[string]any{"bad": nan()}); err == nil {
		t.Fatal("expected error for NaN")
	} else if !errors.Is(err, domain.ErrEncoding) {
		t.Fatalf("expected ErrEncoding, got %v", err)
	}
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
