/*
Package randx generates identifiers: message ids and media object keys.
*/
package randx

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ImageKeyPrefix is the first path segment of every chat image object key.
const ImageKeyPrefix = "images"

// MessageID generates a UUID v4 string used as a message id.
func MessageID() string {
	return uuid.New().String()
}

// ImageKey builds "images/<ownerID>/<uuid><ext>". ext is lower-cased and must include the dot.
func ImageKey(ownerID string, ext string) string {
	return ImageKeyOwnerPrefix(ownerID) + uuid.New().String() + strings.ToLower(ext)
}

// ImageKeyOwnerPrefix is the prefix every key uploaded by ownerID starts with.
// The owner id is path-escaped so it always occupies exactly one key segment.
func ImageKeyOwnerPrefix(ownerID string) string {
	return fmt.Sprintf("%s/%s/", ImageKeyPrefix, url.PathEscape(ownerID))
}

// IsValidUUID reports whether s parses as a UUID.
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
