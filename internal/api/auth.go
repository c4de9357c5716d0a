package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/nerrad567/privatepub/internal/audit"
	"github.com/nerrad567/privatepub/internal/auth"
)

// authMiddleware requires a valid service token in the Authorization header.
// The token subject becomes the audit actor for the request.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			writeUnauthorized(w, "missing or malformed bearer token")
			return
		}

		claims, err := auth.ParseToken(raw, s.jwtSecret)
		if err != nil {
			s.logger.Debug("rejected service token",
				"error", err,
				"request_id", requestFrom(r.Context()).id,
			)
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		info := requestFrom(r.Context())
		info.actor, info.role = claims.Subject, claims.Role

		ctx := context.WithValue(r.Context(), ctxKeyClaims, claims)
		ctx = audit.WithActor(ctx, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission rejects callers whose role lacks perm.
// It must run after authMiddleware.
func (s *Server) requirePermission(perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := claimsFromContext(r.Context())
			if claims == nil || !auth.HasPermission(claims.Role, perm) {
				writeError(w, http.StatusForbidden, ErrCodeForbidden, auth.ErrForbidden.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// claimsFromContext returns the claims stored by authMiddleware, or nil.
func claimsFromContext(ctx context.Context) *auth.CustomClaims {
	claims, _ := ctx.Value(ctxKeyClaims).(*auth.CustomClaims)
	return claims
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", auth.ErrTokenMissing
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", auth.ErrTokenMissing
	}
	return token, nil
}
