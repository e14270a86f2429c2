/*
Package errs provides the application error type and its code constants.

Codes identify a failure both inside the server and on the wire: HTTP responses and
websocket error frames carry the same numeric code and client-facing message.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Message and Media Errors
const (
	// ErrValidation is the generic malformed-send error.
	ErrValidation = 2101

	// ErrSelfMessage indicates a message addressed to its own sender.
	ErrSelfMessage = 2102

	// ErrEmptyMessage indicates a message with neither text nor image.
	ErrEmptyMessage = 2103

	// ErrMessageContentTooLong indicates that the text exceeded the maximum length.
	ErrMessageContentTooLong = 2104

	// ErrUnknownReceiver indicates the receiver id is not a known user.
	ErrUnknownReceiver = 2105

	// ErrMessageNotFound indicates that no message exists with the given id.
	ErrMessageNotFound = 2201

	// ErrImageInvalid indicates the image payload is not an accepted image.
	ErrImageInvalid = 2301

	// ErrImageTooLarge indicates the decoded image exceeded the size limit.
	ErrImageTooLarge = 2302

	// ErrMediaUnavailable indicates image messages are disabled on this server.
	ErrMediaUnavailable = 2303
)

// 3xxx: Identity Errors
const (
	// ErrUnauthorized indicates a missing or invalid identity token.
	ErrUnauthorized = 3101
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrPersistence indicates the message store is unavailable or failed.
	ErrPersistence = 5001

	// ErrDeliveryPush indicates a live push failed. It is logged, never returned to a sender.
	ErrDeliveryPush = 5002

	// ErrFileStorageFailed indicates the media store rejected an operation.
	ErrFileStorageFailed = 5003
)
