package errs

import "net/http"

// errorMap holds the template for every known code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported content type.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Invalid request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Invalid request format.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Message and Media Errors
	ErrValidation:            {Code: ErrValidation, Message: "Invalid message: %s.", Status: http.StatusBadRequest},
	ErrSelfMessage:           {Code: ErrSelfMessage, Message: "You cannot send a message to yourself.", Status: http.StatusBadRequest},
	ErrEmptyMessage:          {Code: ErrEmptyMessage, Message: "Message must contain text or an image.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrUnknownReceiver:       {Code: ErrUnknownReceiver, Message: "Recipient not found.", Status: http.StatusBadRequest},
	ErrMessageNotFound:       {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrImageInvalid:          {Code: ErrImageInvalid, Message: "Unsupported image.", Status: http.StatusBadRequest},
	ErrImageTooLarge:         {Code: ErrImageTooLarge, Message: "Image is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrMediaUnavailable:      {Code: ErrMediaUnavailable, Message: "Image messages are not available.", Status: http.StatusServiceUnavailable},

	// 3xxx: Identity Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrPersistence:       {Code: ErrPersistence, Message: "Message could not be saved. Please try again.", Status: http.StatusServiceUnavailable},
	ErrDeliveryPush:      {Code: ErrDeliveryPush, Message: "Live delivery failed.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
}
