/*
Package req provides helpers for decoding HTTP request bodies.
*/
package req

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"gatherchat/internal/pkg/errs"
)

// MaxJSONBody bounds a JSON body. Image messages travel inline as base64 data URLs,
// so the limit sits well above the decoded image limit.
const MaxJSONBody int64 = 12 << 20 // 12 MB

// BindJSON decodes the request body into dst, rejecting unknown fields and trailing content.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewError(errs.ErrRequestEntityTooLarge)
		}
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
