package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage abstracts the raw-file store. Records hold only the key
// returned by Put; the bytes live here.
type ObjectStorage interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var (
	unsafeChars       = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	repeatedSeparator = regexp.MustCompile(`_+`)
)

// SanitizeFileName reduces a user-supplied filename to a storage-safe
// character set. This keeps keys portable across backends; it is not a
// content-security boundary.
func SanitizeFileName(name string) string {
	sanitized := unsafeChars.ReplaceAllString(name, "_")
	sanitized = repeatedSeparator.ReplaceAllString(sanitized, "_")
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "file"
	}
	return sanitized
}

// BuildKey namespaces the object by owner and adds a millisecond prefix
// so repeated uploads of the same name never collide.
func BuildKey(ownerID, fileName string, now time.Time) string {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		owner = "anonymous"
	}
	return fmt.Sprintf("%s/%d-%s", owner, now.UnixMilli(), SanitizeFileName(fileName))
}
