/*
Package resp writes the standard JSON envelope used by every HTTP endpoint.

Successful responses carry code 0; failures carry the errs code, its client-facing
message and the HTTP status attached to that code.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
)

// JSONResponse is the envelope returned to clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, see errs package otherwise).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the Content-Type and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	_, _ = w.Write(response)
}

// RespondSuccess sends a 200 response with data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends the envelope for err. Non-application errors are reported as ErrUnknown
// and their cause is logged, never written to the client.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	customErr := errs.From(err)
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status >= http.StatusInternalServerError {
		logx.Error(err, "Request failed with server error", "code", customErr.Code, "path", r.URL.Path)
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}
