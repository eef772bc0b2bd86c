package core

import (
	"log/slog"
	"net/http"
	"strings"

	"recipebox/internal/types"
)

// publicPaths bypass authentication entirely.
var publicPaths = map[string]bool{
	"/health": true,
}

// publicPrefixes bypass authentication for every path beneath them. The
// preview endpoints generate content without touching any account.
var publicPrefixes = []string{
	"/v1/generate/preview/",
}

func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// AuthMiddleware resolves the bearer token to an Actor and stores it in the
// request context. Missing or bad credentials get a 401 with the specific
// auth_* code; an unreachable session store gets a 503. With no
// Authenticator configured every request passes through unauthenticated.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Authenticator == nil || r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "a bearer token is required", nil))
			return
		}

		actor, err := s.Authenticator.ResolveToken(r.Context(), token)
		if err != nil {
			s.handleAuthError(w, r, err)
			return
		}
		if actor == nil {
			Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "invalid authentication token", nil))
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithActor(r.Context(), *actor)))
	})
}

// extractBearerToken returns the token from "Bearer <token>" (scheme is
// case-insensitive), or "".
func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (s *Server) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	code := types.ErrorCodeOf(err)
	switch {
	case strings.HasPrefix(string(code), "auth_"):
		s.Logger.Warn("authentication failed",
			slog.String("path", r.URL.Path),
			slog.String("error_code", string(code)),
		)
		Error(w, r, err)
	case types.IsStorageUnavailable(err):
		s.Logger.Error("session store unavailable",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		Error(w, r, err)
	default:
		s.Logger.Error("authentication failed unexpectedly",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		Error(w, r, types.NewAppError(types.ErrCodeAuthTokenInvalid, "authentication failed", nil))
	}
}

// RequireUser returns the authenticated user id or writes a 401 and
// returns false. Handlers call it first.
func RequireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := types.UserIDFromContext(r.Context())
	if !ok {
		Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "authentication required", nil))
		return "", false
	}
	return userID, true
}
