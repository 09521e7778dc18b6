package handlers

import (
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
)

// AuthGate verifies inbound access tokens and resolves them to a caller
// identity before protected handlers run. A failed check always
// short-circuits the request with a 401 envelope; there are no retries.
type AuthGate struct {
	Verifier TokenVerifier
	Users    UserStore
}

// Require wraps a handler so it only runs for authenticated callers. The
// resolved, sanitized identity is attached to the request context.
func (g AuthGate) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := accessTokenFromRequest(r)
		if token == "" {
			respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
			return
		}

		userID, err := g.Verifier.VerifyAccess(token)
		if err != nil {
			respondError(ctx, w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}

		user, err := g.Users.FindByID(ctx, userID)
		if err != nil {
			logging.FromContext(ctx).Warn("auth gate user lookup failed", "userId", userID, "error", err)
			respondError(ctx, w, http.StatusUnauthorized, "invalid access token")
			return
		}

		next(w, r.WithContext(auth.WithUser(ctx, user.Public())))
	}
}

// Attach resolves the caller identity when a valid access token is present
// but lets the request through either way. Handlers that behave differently
// for signed-in callers use this instead of Require.
func (g AuthGate) Attach(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := accessTokenFromRequest(r)
		if token == "" {
			next(w, r)
			return
		}

		userID, err := g.Verifier.VerifyAccess(token)
		if err != nil {
			next(w, r)
			return
		}

		user, err := g.Users.FindByID(ctx, userID)
		if err != nil {
			next(w, r)
			return
		}

		next(w, r.WithContext(auth.WithUser(ctx, user.Public())))
	}
}

// accessTokenFromRequest extracts the access token from the accessToken
// cookie or, failing that, from an Authorization bearer header. The cookie
// takes precedence.
func accessTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
