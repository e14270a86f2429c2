package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"gatherchat/internal/pkg/errs"
)

type sendBody struct {
	Text string `json:"text"`
}

func newJSONRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestBindJSON(t *testing.T) {
	t.Run("should decode a valid body", func(t *testing.T) {
		req := require.New(t)
		var dst sendBody

		err := BindJSON(httptest.NewRecorder(), newJSONRequest(`{"text":"hi"}`), &dst)

		req.Nil(err)
		req.Equal("hi", dst.Text)
	})

	t.Run("should reject non-json content types", func(t *testing.T) {
		req := require.New(t)
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "text/plain")

		err := BindJSON(httptest.NewRecorder(), r, &sendBody{})

		req.Equal(errs.ErrUnsupportedMediaType, err.Code)
	})

	t.Run("should reject unknown fields", func(t *testing.T) {
		req := require.New(t)

		err := BindJSON(httptest.NewRecorder(), newJSONRequest(`{"txt":"hi"}`), &sendBody{})

		req.Equal(errs.ErrInvalidJSONFormat, err.Code)
	})

	t.Run("should reject trailing content", func(t *testing.T) {
		req := require.New(t)

		err := BindJSON(httptest.NewRecorder(), newJSONRequest(`{"text":"a"}{"text":"b"}`), &sendBody{})

		req.Equal(errs.ErrExtraContentInBody, err.Code)
	})
}
