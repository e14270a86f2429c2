package jwt

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	t.Run("should round trip the user id", func(t *testing.T) {
		req := require.New(t)

		token, err := GenerateToken(&Payload{UserID: "user-a"}, testSecret, time.Minute)
		req.NoError(err)

		payload, err := ParseToken(token, testSecret)
		req.NoError(err)
		req.Equal("user-a", payload.UserID)
		req.Equal("user-a", payload.Subject)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		req := require.New(t)

		token, err := GenerateToken(&Payload{UserID: "user-a"}, "other", time.Minute)
		req.NoError(err)

		_, err = ParseToken(token, testSecret)
		req.Error(err)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		req := require.New(t)

		token, err := GenerateToken(&Payload{UserID: "user-a"}, testSecret, -time.Minute)
		req.NoError(err)

		_, err = ParseToken(token, testSecret)
		req.Error(err)
	})

	t.Run("should refuse to sign without a user id", func(t *testing.T) {
		_, err := GenerateToken(&Payload{}, testSecret, time.Minute)
		require.Error(t, err)
	})
}

func TestIdentityMiddleware(t *testing.T) {
	token, err := GenerateToken(&Payload{UserID: "user-b"}, testSecret, time.Minute)
	require.NoError(t, err)

	var seen string
	handler := IdentityExtractorMiddleware(testSecret)(RequireIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserID(r)
	})))

	cases := []struct {
		name   string
		build  func(r *http.Request)
		status int
		userID string
	}{
		{name: "bearer header", build: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, status: http.StatusOK, userID: "user-b"},
		{name: "token header", build: func(r *http.Request) { r.Header.Set("token", token) }, status: http.StatusOK, userID: "user-b"},
		{name: "query param", build: func(r *http.Request) { r.URL.RawQuery = "token=" + token }, status: http.StatusOK, userID: "user-b"},
		{name: "anonymous", build: func(r *http.Request) {}, status: http.StatusUnauthorized},
		{name: "garbage token", build: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.build(r)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, r)

			req.Equal(tc.status, w.Code)
			req.Equal(tc.userID, seen)
		})
	}
}
