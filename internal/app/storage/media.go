package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"gatherchat/internal/pkg/errs"
	"gatherchat/internal/pkg/logx"
	"gatherchat/internal/pkg/randx"
)

// PresignedURLDuration is the fixed duration for which an upload URL is valid.
const PresignedURLDuration = 5 * time.Minute

// AllowedMIMETypes defines the set of permitted image types.
var AllowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// MediaConfig configures a MediaResolver.
type MediaConfig struct {
	// PublicBaseURL is the URL prefix under which bucket keys are publicly readable.
	PublicBaseURL string

	// MaxImageBytes bounds a single image.
	MaxImageBytes int64
}

// PresignedUpload is a time-limited upload slot for one image.
type PresignedUpload struct {
	URL string `json:"presignedUrl"`
	Key string `json:"fileKey"`
}

// MediaResolver turns the image field of an outgoing message into a public URL.
type MediaResolver struct {
	store  StorageService
	cfg    MediaConfig
	logger zerolog.Logger
}

// NewMediaResolver creates a MediaResolver over store.
func NewMediaResolver(store StorageService, cfg MediaConfig) *MediaResolver {
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &MediaResolver{
		store:  store,
		cfg:    cfg,
		logger: logx.Component("media"),
	}
}

// ValidateImageSize checks if the provided size is within acceptable limits.
func (m *MediaResolver) ValidateImageSize(size int64) *errs.CustomError {
	if size <= 0 {
		return errs.NewError(errs.ErrImageInvalid)
	}
	if size > m.cfg.MaxImageBytes {
		return errs.NewError(errs.ErrImageTooLarge)
	}
	return nil
}

// ValidateImageType checks that fileName's extension agrees with an allowed mimeType.
func ValidateImageType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := AllowedMIMETypes[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrImageInvalid)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	expectedMIME, ok := ExtToMIME[ext]
	if !ok || expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrImageInvalid)
	}

	return nil
}

func (m *MediaResolver) publicURL(key string) string {
	return m.cfg.PublicBaseURL + "/" + key
}

// Resolve accepts one of three image references and returns a public URL:
// a base64 data URL (uploaded on the sender's behalf), a key the sender uploaded
// through a presigned slot, or a URL already under the public base.
// An empty ref resolves to an empty URL.
func (m *MediaResolver) Resolve(ctx context.Context, senderID, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return "", nil
	case m == nil:
		return "", errs.NewError(errs.ErrMediaUnavailable)
	case strings.HasPrefix(ref, "data:"):
		return m.uploadDataURL(ctx, senderID, ref)
	case strings.HasPrefix(ref, m.cfg.PublicBaseURL+"/"):
		key := strings.TrimPrefix(ref, m.cfg.PublicBaseURL+"/")
		if err := m.checkObject(ctx, key); err != nil {
			return "", err
		}
		return ref, nil
	case strings.Contains(ref, "://"):
		return "", errs.NewError(errs.ErrImageInvalid)
	default:
		if !strings.HasPrefix(ref, randx.ImageKeyOwnerPrefix(senderID)) {
			return "", errs.NewError(errs.ErrImageInvalid)
		}
		if err := m.checkObject(ctx, ref); err != nil {
			return "", err
		}
		return m.publicURL(ref), nil
	}
}

func (m *MediaResolver) uploadDataURL(ctx context.Context, senderID, ref string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", errs.NewError(errs.ErrImageInvalid)
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > m.cfg.MaxImageBytes+2 {
		return "", errs.NewError(errs.ErrImageTooLarge)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", errs.Wrap(errs.ErrImageInvalid, err)
	}
	if customErr := m.ValidateImageSize(int64(len(data))); customErr != nil {
		return "", customErr
	}

	detected := mimetype.Detect(data)
	if _, ok := AllowedMIMETypes[detected.String()]; !ok {
		m.logger.Debug().
			Str("sender_id", senderID).
			Str("detected", detected.String()).
			Msg("Rejected image with unsupported type.")
		return "", errs.NewError(errs.ErrImageInvalid)
	}

	key := randx.ImageKey(senderID, detected.Extension())
	if err := m.store.Upload(ctx, key, detected.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		return "", errs.Wrap(errs.ErrFileStorageFailed, err)
	}

	m.logger.Debug().
		Str("sender_id", senderID).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Image uploaded.")
	return m.publicURL(key), nil
}

func (m *MediaResolver) checkObject(ctx context.Context, key string) error {
	info, err := m.store.GetObjectMetadata(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return errs.Wrap(errs.ErrImageInvalid, err)
	}
	if err != nil {
		return errs.Wrap(errs.ErrFileStorageFailed, err)
	}

	if _, ok := AllowedMIMETypes[strings.ToLower(info.ContentType)]; !ok {
		return errs.NewError(errs.ErrImageInvalid)
	}
	if customErr := m.ValidateImageSize(info.Size); customErr != nil {
		return customErr
	}
	return nil
}

// PresignImageUpload reserves a key under ownerID's prefix and returns an upload URL for it.
func (m *MediaResolver) PresignImageUpload(
	ctx context.Context,
	ownerID string,
	fileName string,
	mimeType string,
	fileSize int64,
) (PresignedUpload, error) {
	if m == nil {
		return PresignedUpload{}, errs.NewError(errs.ErrMediaUnavailable)
	}
	if customErr := m.ValidateImageSize(fileSize); customErr != nil {
		return PresignedUpload{}, customErr
	}
	if customErr := ValidateImageType(fileName, mimeType); customErr != nil {
		return PresignedUpload{}, customErr
	}

	key := randx.ImageKey(ownerID, filepath.Ext(fileName))
	url, err := m.store.PresignUpload(ctx, key, strings.ToLower(mimeType), fileSize, PresignedURLDuration)
	if err != nil {
		return PresignedUpload{}, errs.Wrap(errs.ErrFileStorageFailed, err)
	}

	return PresignedUpload{URL: url, Key: key}, nil
}
