// Package naming generates the random names handed out by the gateway:
// stored file names, unique within a namespace, and deletion tokens.
package naming

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	// NameLength is the number of random bytes behind a stored file name.
	NameLength = 16
	// DeletionTokenLength is the number of random bytes behind a deletion token.
	DeletionTokenLength = 20

	maxAttempts = 8
)

// ErrUnknownContentType is returned for content types without an extension.
var ErrUnknownContentType = errors.New("unknown content type")

// ErrExhausted is returned when every generated name was already taken.
var ErrExhausted = errors.New("no free file name")

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
	"video/webm": ".webm",
	"audio/mp4":  ".m4a",
	"audio/mp3":  ".mp3",
	"audio/mpeg": ".mp3",
}

// Extension returns the file extension for a declared content type.
// Parameters such as "; charset=" are ignored.
func Extension(contentType string) (string, bool) {
	mediaType, _, _ := strings.Cut(contentType, ";")
	ext, ok := extensions[strings.ToLower(strings.TrimSpace(mediaType))]
	return ext, ok
}

// RandomString returns a URL-safe string built from n random bytes. The
// alphabet is base64url without '-', so the result never contains a path
// separator.
func RandomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ReplaceAll(base64.RawURLEncoding.EncodeToString(buf), "-", ""), nil
}

// DeletionToken returns a new deletion capability token. Tokens are only
// stored in the database, so no uniqueness check is made.
func DeletionToken() (string, error) {
	return RandomString(DeletionTokenLength)
}

// Checker reports whether a name is taken.
type Checker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Allocator picks file names that are free in a namespace at call time.
// Nothing reserves the name: two concurrent callers may race to the same
// name, which the storage and database layers reject.
type Allocator struct {
	length int
}

// NewAllocator creates an Allocator producing names from length random bytes.
func NewAllocator(length int) *Allocator {
	if length <= 0 {
		length = NameLength
	}
	return &Allocator{length: length}
}

// Allocate returns "{random}{ext}" not present in ns.
func (a *Allocator) Allocate(ctx context.Context, ns Checker, contentType string) (string, error) {
	ext, ok := Extension(contentType)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownContentType, contentType)
	}

	for i := 0; i < maxAttempts; i++ {
		base, err := RandomString(a.length)
		if err != nil {
			return "", err
		}
		name := base + ext

		taken, err := ns.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check name: %w", err)
		}
		if !taken {
			return name, nil
		}
	}
	return "", ErrExhausted
}
