// Package oauth implements the Anthropic Claude Code OAuth PKCE flow used
// by `golem login`: building the authorize URL, exchanging an
// authorization code for tokens, and refreshing an expired access token.
package oauth

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/assapir/golem/pkg/golem"
)

const (
	clientID     = "9d1c250a-e61b-44d9-88ed-5944d1962f5e"
	authorizeURL = "https://claude.ai/oauth/authorize"
	tokenURL     = "https://console.anthropic.com/v1/oauth/token"
	redirectURI  = "https://console.anthropic.com/oauth/code/callback"
	scopes       = "org:create_api_key user:profile user:inference"

	// expiryMargin is subtracted from the server-reported expiry so a
	// credential is treated as expired slightly before it actually is.
	expiryMargin = 5 * time.Minute
)

// PKCE is a generated code verifier and its S256 challenge. The verifier
// must be retained by the caller and supplied again at token exchange;
// it doubles as the "state" parameter round-tripped through the redirect.
type PKCE struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a fresh verifier/challenge pair from 32 random
// bytes, base64url-no-pad encoded, hashed with SHA-256 for the challenge.
func GeneratePKCE() (PKCE, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return PKCE{}, fmt.Errorf("oauth: generating PKCE verifier: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(verifier))
	challenge := base64.RawURLEncoding.EncodeToString(sum[:])
	return PKCE{Verifier: verifier, Challenge: challenge}, nil
}

// BuildAuthorizeURL returns the URL the user should visit to approve the
// login, along with the PKCE pair generated for this attempt.
func BuildAuthorizeURL() (string, PKCE, error) {
	pkce, err := GeneratePKCE()
	if err != nil {
		return "", PKCE{}, err
	}

	params := []struct{ key, value string }{
		{"code", "true"},
		{"client_id", clientID},
		{"response_type", "code"},
		{"redirect_uri", redirectURI},
		{"scope", scopes},
		{"code_challenge", pkce.Challenge},
		{"code_challenge_method", "S256"},
		{"state", pkce.Verifier},
	}

	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(p.key)
		query.WriteByte('=')
		query.WriteString(rfc3986Encode(p.value))
	}

	return authorizeURL + "?" + query.String(), pkce, nil
}

// rfc3986Encode percent-encodes every byte outside the unreserved set
// (ALPHA / DIGIT / "-" / "." / "_" / "~"), matching the original
// implementation's urlencoded() rather than net/url's form-encoding
// (which would emit "+" for a space instead of "%20").
func rfc3986Encode(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9',
			b == '-', b == '_', b == '.', b == '~':
			out.WriteByte(b)
		default:
			fmt.Fprintf(&out, "%%%02X", b)
		}
	}
	return out.String()
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    uint64 `json:"expires_in"`
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	Code         string `json:"code,omitempty"`
	State        string `json:"state,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	CodeVerifier string `json:"code_verifier,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// ExchangeCode trades an authorization code for tokens. rawCode is the
// string pasted back by the user, in the "code#state" format the
// redirect page shows.
func ExchangeCode(ctx context.Context, rawCode, verifier string) (golem.Credential, error) {
	code, state, _ := splitOnce(rawCode, '#')
	body := tokenRequest{
		GrantType:    "authorization_code",
		ClientID:     clientID,
		Code:         code,
		State:        state,
		RedirectURI:  redirectURI,
		CodeVerifier: verifier,
	}
	return requestToken(ctx, body)
}

// RefreshToken exchanges a refresh token for a new access token.
func RefreshToken(ctx context.Context, refresh string) (golem.Credential, error) {
	body := tokenRequest{
		GrantType:    "refresh_token",
		ClientID:     clientID,
		RefreshToken: refresh,
	}
	return requestToken(ctx, body)
}

func requestToken(ctx context.Context, body tokenRequest) (golem.Credential, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return golem.Credential{}, fmt.Errorf("oauth: encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return golem.Credential{}, fmt.Errorf("oauth: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return golem.Credential{}, fmt.Errorf("oauth: token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return golem.Credential{}, fmt.Errorf("oauth: token request returned %s", resp.Status)
	}

	var data tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return golem.Credential{}, fmt.Errorf("oauth: decoding token response: %w", err)
	}

	// oauth2.Token is reused purely as a wire-shaped carrier between the
	// raw HTTP response and our own Credential type; we don't use its
	// TokenSource machinery since Anthropic's refresh flow is a plain
	// POST we already drive ourselves.
	tok := &oauth2.Token{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		Expiry:       time.UnixMilli(int64(nowMs() + data.ExpiresIn*1000)),
	}

	expiresAt := uint64(tok.Expiry.UnixMilli()) - uint64(expiryMargin.Milliseconds())
	return golem.NewOAuthCredential(tok.AccessToken, tok.RefreshToken, expiresAt), nil
}

func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// splitOnce splits s on the first occurrence of sep, returning "" for the
// remainder (and found=false) if sep isn't present.
func splitOnce(s string, sep byte) (before, after string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}
