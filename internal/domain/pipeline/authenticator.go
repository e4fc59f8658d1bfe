package pipeline

import (
	"context"
	"net/http"
	"strings"

	"github.com/Microck/bansho/internal/domain/auth"
	banshomcp "github.com/Microck/bansho/pkg/mcp"
)

// CredentialSource gathers everything the authenticator might read a
// presented credential from. HTTPRequest is set by HTTP-style transports;
// Meta is the mirrored headers/query carried in an MCP message's "_meta"
// object, always available regardless of transport. Both are consulted so
// the authenticator stays transport-agnostic (spec §4.4).
type CredentialSource struct {
	HTTPRequest *http.Request
	Meta        *banshomcp.Meta
}

// ExtractCredential returns the first non-empty presented credential, in
// priority order: Authorization: Bearer <token> (case-insensitive scheme),
// X-API-Key header, then the api_key query parameter.
func ExtractCredential(src CredentialSource) string {
	if auth := headerValue(src, "Authorization"); auth != "" {
		if token, ok := bearerToken(auth); ok && token != "" {
			return token
		}
	}
	if key := headerValue(src, "X-API-Key"); key != "" {
		return key
	}
	if key := queryValue(src, "api_key"); key != "" {
		return key
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const prefix = "bearer "
	if len(value) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(value[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(value[len(prefix):]), true
}

func headerValue(src CredentialSource, name string) string {
	if src.HTTPRequest != nil {
		if v := src.HTTPRequest.Header.Get(name); v != "" {
			return v
		}
	}
	if src.Meta != nil {
		for k, v := range src.Meta.Headers {
			if strings.EqualFold(k, name) && v != "" {
				return v
			}
		}
	}
	return ""
}

func queryValue(src CredentialSource, name string) string {
	if src.HTTPRequest != nil {
		if v := src.HTTPRequest.URL.Query().Get(name); v != "" {
			return v
		}
	}
	if src.Meta != nil {
		if v, ok := src.Meta.Query[name]; ok && v != "" {
			return v
		}
		if v, ok := src.Meta.QueryParams[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// Authenticator implements C4: resolves a presented credential against the
// credential store, returning an AuthContext on success.
type Authenticator struct {
	credentials *auth.Service
}

// NewAuthenticator creates an Authenticator backed by the given credential
// service.
func NewAuthenticator(credentials *auth.Service) *Authenticator {
	return &Authenticator{credentials: credentials}
}

// Authenticate extracts and resolves a credential from src. Returns
// Unauthorized (401) when no credential is presented, or C1.Resolve finds
// no match (or an invalid/blank identity).
func (a *Authenticator) Authenticate(ctx context.Context, src CredentialSource) (auth.AuthContext, *Error) {
	presented := ExtractCredential(src)
	if presented == "" {
		return auth.AuthContext{}, Unauthorized()
	}

	key, ok, err := a.credentials.Resolve(ctx, presented)
	if err != nil {
		return auth.AuthContext{}, Internal(err)
	}
	if !ok || key.ID == "" || key.Role == "" {
		return auth.AuthContext{}, Unauthorized()
	}

	return auth.AuthContext{ApiKeyID: key.ID, Role: key.Role}, nil
}
