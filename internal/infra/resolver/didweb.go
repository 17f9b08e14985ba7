package resolver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"genesisgraph/internal/domain"
)

const (
	// maxResponseSize caps DID document bodies at 1 MB.
	maxResponseSize = 1 << 20

	defaultKeyFragment = "#keys-1"

	resolverUserAgent = "genesisgraph-did-resolver/1.0"
)

// resolveDIDWeb fetches and parses the DID document for a did:web
// identifier. The method identifier is `<domain>[:segment]*`, mapping to
// https://<domain>/.well-known/did.json or https://<domain>/<segments>/did.json.
func (r *Resolver) resolveDIDWeb(ctx context.Context, methodID string, keyFragment string) ([]byte, error) {
	// IPv6 literals contain colons themselves, so the whole method id has to
	// be screened before it is split into domain and path segments.
	if isBlockedHost(methodID) {
		return nil, fmt.Errorf("%w: blocked host in did:web: %q (private/internal hosts are not allowed)",
			domain.ErrSecurityPolicy, methodID)
	}

	parts := strings.Split(methodID, ":")
	host := parts[0]
	if host == "" {
		return nil, fmt.Errorf("%w: did:web has empty domain", domain.ErrInvalidInput)
	}

	if isBlockedHost(host) {
		return nil, fmt.Errorf("%w: blocked host in did:web: %q (private/internal hosts are not allowed)",
			domain.ErrSecurityPolicy, host)
	}

	decision, err := r.limiter.Allow(ctx, "didweb:"+host, r.rateLimit, RateWindow)
	if err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrResolution, err)
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %w for domain %q: %d requests per minute maximum",
			domain.ErrSecurityPolicy, domain.ErrRateLimited, host, decision.Limit)
	}

	url := "https://" + host + "/.well-known/did.json"
	if len(parts) > 1 {
		url = "https://" + host + "/" + strings.Join(parts[1:], "/") + "/did.json"
	}

	doc, err := r.fetchDIDDocument(ctx, url)
	if err != nil {
		return nil, err
	}

	if keyFragment == "" {
		keyFragment = defaultKeyFragment
	} else if !strings.HasPrefix(keyFragment, "#") {
		keyFragment = "#" + keyFragment
	}
	return extractVerificationKey(doc, keyFragment)
}

func (r *Resolver) fetchDIDDocument(ctx context.Context, url string) (*didDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolution, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", resolverUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch did:web document from %s: %v", domain.ErrResolution, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: redirect from %s refused", domain.ErrSecurityPolicy, url)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d from %s", domain.ErrResolution, resp.StatusCode, url)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") && !strings.Contains(contentType, "application/did+json") {
		return nil, fmt.Errorf("%w: invalid content type from %s: %q", domain.ErrSecurityPolicy, url, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", domain.ErrResolution, url, err)
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("%w: response too large from %s (max %d bytes)",
			domain.ErrSecurityPolicy, url, maxResponseSize)
	}

	var doc didDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in did:web document from %s: %v", domain.ErrResolution, url, err)
	}
	return &doc, nil
}

type didDocument struct {
	ID                 string               `json:"id"`
	VerificationMethod []verificationMethod `json:"verificationMethod"`
}

type verificationMethod struct {
	ID                 string   `json:"id"`
	Type               string   `json:"type"`
	Controller         string   `json:"controller"`
	PublicKeyBase58    string   `json:"publicKeyBase58,omitempty"`
	PublicKeyMultibase string   `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *jwk     `json:"publicKeyJwk,omitempty"`
}

type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
}

var supportedKeyTypes = map[string]bool{
	"Ed25519VerificationKey2018": true,
	"Ed25519VerificationKey2020": true,
	"JsonWebKey2020":             true,
}

// extractVerificationKey finds the verification method matching keyFragment
// (exact or suffix match, so relative and absolute key ids both work) and
// decodes whichever key encoding it carries.
func extractVerificationKey(doc *didDocument, keyFragment string) ([]byte, error) {
	for _, method := range doc.VerificationMethod {
		if method.ID != keyFragment && !strings.HasSuffix(method.ID, keyFragment) {
			continue
		}
		if !supportedKeyTypes[method.Type] {
			return nil, fmt.Errorf("%w: unsupported key type: %q", domain.ErrResolution, method.Type)
		}

		switch {
		case method.PublicKeyBase58 != "":
			return decodeBase58Bounded(method.PublicKeyBase58)
		case method.PublicKeyMultibase != "":
			encoded, ok := strings.CutPrefix(method.PublicKeyMultibase, "z")
			if !ok {
				return nil, fmt.Errorf("%w: unsupported multibase encoding: %q",
					domain.ErrResolution, method.PublicKeyMultibase[:1])
			}
			return decodeBase58Bounded(encoded)
		case method.PublicKeyJwk != nil:
			key := method.PublicKeyJwk
			if key.Kty != "OKP" || key.Crv != "Ed25519" {
				return nil, fmt.Errorf("%w: unsupported JWK key type %s/%s", domain.ErrResolution, key.Kty, key.Crv)
			}
			raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key.X, "="))
			if err != nil {
				return nil, fmt.Errorf("%w: invalid JWK x coordinate: %v", domain.ErrResolution, err)
			}
			return raw, nil
		}
		return nil, fmt.Errorf("%w: no supported public key format in verification method %q",
			domain.ErrResolution, method.ID)
	}
	return nil, fmt.Errorf("%w: key %q not found in DID document", domain.ErrResolution, keyFragment)
}
