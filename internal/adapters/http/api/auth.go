package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey int

const playerIDKey ctxKey = iota

// DevPlayerHeader carries the player id when no JWT secret is configured.
const DevPlayerHeader = "X-Player-Id"

// WithPlayerID stores the authenticated player on ctx.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

// PlayerIDFromContext returns the authenticated player.
func PlayerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(playerIDKey).(string)
	return id, ok && id != ""
}

// PlayerIDFromRequest is PlayerIDFromContext for request-scoped callers.
func PlayerIDFromRequest(r *http.Request) (string, bool) {
	return PlayerIDFromContext(r.Context())
}

// Authenticator resolves the player behind a request.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator verifies HS256 bearer tokens signed with secret. With an
// empty secret it trusts the X-Player-Id header, which is only meant for
// local development.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Middleware rejects unauthenticated requests with 401.
func (a *Authenticator) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "api.auth"
		playerID, err := a.playerID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", WrapKind(op, ErrUnauthorized, err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPlayerID(r.Context(), playerID)))
	}
}

func (a *Authenticator) playerID(r *http.Request) (string, error) {
	if len(a.secret) == 0 {
		if id := strings.TrimSpace(r.Header.Get(DevPlayerHeader)); id != "" {
			return id, nil
		}
		return "", errors.New("missing " + DevPlayerHeader + " header")
	}

	raw := bearerToken(r)
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if id, ok := claims["playerId"].(string); ok && id != "" {
		return id, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errors.New("token carries no player id")
}

// bearerToken reads the Authorization header, or the token query parameter
// browsers have to use for websockets.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
