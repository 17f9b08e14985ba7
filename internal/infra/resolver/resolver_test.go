package resolver

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mr-tron/base58"

	"genesisgraph/internal/domain"
	"genesisgraph/internal/infra/ratelimit"
)

func didKeyFor(t *testing.T, pub ed25519.PublicKey) string {
	t.Helper()
	prefixed := append([]byte{0xED, 0x01}, pub...)
	return "did:key:z" + base58.Encode(prefixed)
}

func TestResolve_DIDKeyRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	r := New(Config{})

	got, err := r.Resolve(context.Background(), didKeyFor(t, pub), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !bytes.Equal(got, pub) {
		t.Fatal("resolved key differs from the encoded key")
	}
}

func TestResolve_DIDKeyKnownVector(t *testing.T) {
	// Standard Ed25519 did:key test vector.
	r := New(Config{})
	key, err := r.Resolve(context.Background(), "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(key) != ed25519.PublicKeySize {
		t.Fatalf("key length: got %d, want %d", len(key), ed25519.PublicKeySize)
	}
}

func TestResolve_DIDKeyRejections(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)

	secpPrefixed := append([]byte{0xE7, 0x01}, pub...)
	shortPrefixed := append([]byte{0xED, 0x01}, pub[:16]...)

	cases := []struct {
		name string
		did  string
	}{
		{"missing multibase prefix", "did:key:" + base58.Encode(append([]byte{0xED, 0x01}, pub...))},
		{"wrong key type", "did:key:z" + base58.Encode(secpPrefixed)},
		{"truncated key", "did:key:z" + base58.Encode(shortPrefixed)},
		{"not base58", "did:key:z0OIl"},
		{"oversized", "did:key:z" + strings.Repeat("1", 129)},
	}
	r := New(Config{})
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tc.did, "")
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestResolve_MalformedDIDs(t *testing.T) {
	r := New(Config{})
	cases := []string{
		"",
		"not-a-did",
		"did:",
		"did:key",
		"did:example:123",
		"did:web:" + strings.Repeat("a", domain.MaxDIDLength),
	}
	for _, did := range cases {
		if _, err := r.Resolve(context.Background(), did, ""); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("did %q: expected ErrInvalidInput, got %v", did, err)
		}
	}
}

func TestResolve_DIDWebBlockedHosts(t *testing.T) {
	// No HTTP client injected on purpose: a blocked host must be rejected
	// before any network activity, so these tests never touch the network.
	r := New(Config{})
	hosts := []string{
		"localhost",
		"127.0.0.1",
		"0.0.0.0",
		"169.254.169.254",
		"10.0.0.5",
		"172.16.8.1",
		"192.168.1.1",
		"127.8.8.8",
		"[::1]",
		"::ffff:127.0.0.1",
	}
	for _, host := range hosts {
		_, err := r.Resolve(context.Background(), "did:web:"+host, "")
		if !errors.Is(err, domain.ErrSecurityPolicy) {
			t.Fatalf("host %q: expected ErrSecurityPolicy, got %v", host, err)
		}
	}
}

// rewriteTransport sends every request to the test server regardless of the
// host in the URL, keeping did:web tests off the real network.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
	calls  int
}

func (rt *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.calls++
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "https"
	clone.URL.Host = rt.target
	return rt.base.RoundTrip(clone)
}

func newWebFixture(t *testing.T, handler http.Handler) (*Resolver, *rewriteTransport) {
	t.Helper()
	server := httptest.NewTLSServer(handler)
	t.Cleanup(server.Close)

	transport := &rewriteTransport{
		base:   server.Client().Transport,
		target: strings.TrimPrefix(server.URL, "https://"),
	}
	r := New(Config{HTTPClient: &http.Client{Transport: transport}})
	return r, transport
}

func didDocumentJSON(did string, methods ...string) string {
	return fmt.Sprintf(`{"id": %q, "verificationMethod": [%s]}`, did, strings.Join(methods, ","))
}

func TestResolve_DIDWebKeyEncodings(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	b58 := base58.Encode(pub)
	jwkX := base64RawURL(pub)

	doc := didDocumentJSON("did:web:example.com",
		fmt.Sprintf(`{"id": "did:web:example.com#keys-1", "type": "Ed25519VerificationKey2018", "publicKeyBase58": %q}`, b58),
		fmt.Sprintf(`{"id": "did:web:example.com#keys-2", "type": "Ed25519VerificationKey2020", "publicKeyMultibase": "z%s"}`, b58),
		fmt.Sprintf(`{"id": "did:web:example.com#keys-3", "type": "JsonWebKey2020", "publicKeyJwk": {"kty": "OKP", "crv": "Ed25519", "x": %q}}`, jwkX),
	)
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/.well-known/did.json" {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Content-Type", "application/did+json")
		w.Write([]byte(doc))
	}))

	for _, fragment := range []string{"", "#keys-1", "keys-2", "#keys-3"} {
		key, err := r.Resolve(context.Background(), "did:web:example.com", fragment)
		if err != nil {
			t.Fatalf("resolve fragment %q: %v", fragment, err)
		}
		if !bytes.Equal(key, pub) {
			t.Fatalf("fragment %q: resolved wrong key", fragment)
		}
	}

	if _, err := r.Resolve(context.Background(), "did:web:example.com", "#missing"); !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("unknown fragment: expected ErrResolution, got %v", err)
	}
}

func TestResolve_DIDWebPathSegments(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	doc := didDocumentJSON("did:web:example.com:users:alice",
		fmt.Sprintf(`{"id": "#keys-1", "type": "Ed25519VerificationKey2018", "publicKeyBase58": %q}`, base58.Encode(pub)))

	var requestedPath string
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requestedPath = req.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))

	key, err := r.Resolve(context.Background(), "did:web:example.com:users:alice", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if requestedPath != "/users/alice/did.json" {
		t.Fatalf("requested path: got %q, want /users/alice/did.json", requestedPath)
	}
	if !bytes.Equal(key, pub) {
		t.Fatal("resolved wrong key")
	}
}

func TestResolve_DIDWebRefusesRedirect(t *testing.T) {
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "https://evil.example/did.json", http.StatusFound)
	}))
	if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); !errors.Is(err, domain.ErrSecurityPolicy) {
		t.Fatalf("expected ErrSecurityPolicy, got %v", err)
	}
}

func TestResolve_DIDWebRejectsWrongContentType(t *testing.T) {
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); !errors.Is(err, domain.ErrSecurityPolicy) {
		t.Fatalf("expected ErrSecurityPolicy, got %v", err)
	}
}

func TestResolve_DIDWebRejectsOversizedBody(t *testing.T) {
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(bytes.Repeat([]byte("a"), maxResponseSize+1))
	}))
	if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); !errors.Is(err, domain.ErrSecurityPolicy) {
		t.Fatalf("expected ErrSecurityPolicy, got %v", err)
	}
}

func TestResolve_DIDWebNonOKStatus(t *testing.T) {
	r, _ := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); !errors.Is(err, domain.ErrResolution) {
		t.Fatalf("expected ErrResolution, got %v", err)
	}
}

func TestResolve_DIDWebRateLimited(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{Now: func() time.Time { return clock }})

	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	doc := didDocumentJSON("did:web:example.com",
		fmt.Sprintf(`{"id": "#keys-1", "type": "Ed25519VerificationKey2018", "publicKeyBase58": %q}`, base58.Encode(pub)))
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))
	t.Cleanup(server.Close)

	transport := &rewriteTransport{
		base:   server.Client().Transport,
		target: strings.TrimPrefix(server.URL, "https://"),
	}
	r := New(Config{
		HTTPClient: &http.Client{Transport: transport},
		RateLimit:  2,
		Limiter:    limiter,
	})

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		r.ClearCache()
	}
	_, err := r.Resolve(context.Background(), "did:web:example.com", "")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if !errors.Is(err, domain.ErrSecurityPolicy) {
		t.Fatalf("rate limiting is a security policy failure, got %v", err)
	}
}

func TestResolve_CachesDIDWebKeys(t *testing.T) {
	pub, _, _ := ed25519.GenerateKey(rand.Reader)
	doc := didDocumentJSON("did:web:example.com",
		fmt.Sprintf(`{"id": "#keys-1", "type": "Ed25519VerificationKey2018", "publicKeyBase58": %q}`, base58.Encode(pub)))
	r, transport := newWebFixture(t, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}))

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	if transport.calls != 1 {
		t.Fatalf("expected one fetch, got %d", transport.calls)
	}

	r.ClearCache()
	if _, err := r.Resolve(context.Background(), "did:web:example.com", ""); err != nil {
		t.Fatalf("resolve after purge: %v", err)
	}
	if transport.calls != 2 {
		t.Fatalf("expected refetch after purge, got %d calls", transport.calls)
	}
}

func TestResolve_CachedKeyIsNotAliased(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	did := didKeyFor(t, pub)
	r := New(Config{})

	first, err := r.Resolve(context.Background(), did, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	first[0] ^= 0xFF

	second, err := r.Resolve(context.Background(), did, "")
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if !bytes.Equal(second, []byte(pub)) {
		t.Fatal("mutating a returned key must not change the cached key")
	}
	if &second[0] == &first[0] {
		t.Fatal("cache hits must return distinct backing arrays")
	}
}

func base64RawURL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
