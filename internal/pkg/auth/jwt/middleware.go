package jwt

import (
	"context"
	"net/http"
	"strings"

	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/resp"
)

type contextKey string

const (
	// ContextAuthPayloadKey is the key used to store the parsed Payload in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"

	// TokenQueryParam carries the token on websocket upgrades, where browsers cannot set headers.
	TokenQueryParam = "token"
)

// tokenFromRequest looks for "Authorization: Bearer <t>", then a bare "token" header, then the query string.
func tokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := r.Header.Get("token"); token != "" {
		return token
	}

	return r.URL.Query().Get(TokenQueryParam)
}

// IdentityExtractorMiddleware validates a token when one is present and injects its Payload
// into the request context. Missing or invalid tokens leave the request anonymous.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err.Error())
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity rejects anonymous requests with ErrUnauthorized.
// It must run after IdentityExtractorMiddleware.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPayloadFromContext returns the authenticated Payload, or nil for anonymous requests.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)

	if !ok {
		return nil
	}

	return payload
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(r *http.Request) string {
	if payload := GetPayloadFromContext(r); payload != nil {
		return payload.UserID
	}
	return ""
}
