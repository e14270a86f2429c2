package handler

import (
	"net/http"

	"gatherchat/internal/pkg/auth/jwt"
	"gatherchat/internal/pkg/req"
	"gatherchat/internal/pkg/resp"
)

// PresignUploadInput defines the JSON input structure for generating an upload URL.
type PresignUploadInput struct {
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignImageUpload creates an HTTP HandlerFunc that issues a time-limited,
// pre-signed URL for uploading one chat image under the caller's key prefix.
func HandlePresignImageUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input PresignUploadInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		upload, err := deps.Media.PresignImageUpload(
			r.Context(),
			jwt.UserID(r),
			input.FileName,
			input.MimeType,
			input.FileSize,
		)
		if err != nil {
			resp.RespondError(w, r, err)
			return
		}

		resp.RespondSuccess(w, r, upload)
	}
}
