// Package auth carries the caller's identity through a request and extracts
// bearer tokens from incoming requests.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/pcpboard/internal/server/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// TokenQueryParam is accepted where clients cannot set headers (WebSocket
// upgrades from a browser).
const TokenQueryParam = "token"

// Identity is the resolved caller. The zero value is anonymous.
type Identity struct {
	User  *models.User
	Token string
}

func (i Identity) IsAuthenticated() bool {
	return i.User != nil
}

func (i Identity) IsAdmin() bool {
	return i.User != nil && i.User.IsAdmin
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored in ctx, or an anonymous one.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey).(Identity)
	return id
}

// BearerToken returns the token from "Authorization: Bearer <token>". The
// scheme is matched case-insensitively.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestToken reads the bearer header, falling back to the token query
// parameter when allowQuery is set.
func RequestToken(r *http.Request, allowQuery bool) string {
	if t := BearerToken(r.Header.Get("Authorization")); t != "" {
		return t
	}
	if allowQuery {
		return r.URL.Query().Get(TokenQueryParam)
	}
	return ""
}
