// Package storage defines where uploaded bytes live.
// A Backend hands out one Namespace per user for images and video plus a
// single flat Namespace for audio. Two implementations exist: the local
// filesystem tree and any S3-compatible bucket reachable through MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PreserveDir is the name of the per-user namespace holding preserved copies.
const PreserveDir = "preserve"

// ErrExists is returned by Save when name is already taken.
var ErrExists = errors.New("file already exists")

// ErrInvalidName is returned for names that could escape their namespace.
var ErrInvalidName = errors.New("invalid file name")

// ErrPreserveUnsupported is returned by namespaces without a preserve area.
var ErrPreserveUnsupported = errors.New("preserve not supported")

// Namespace is a flat set of named files.
type Namespace interface {
	// Exists reports whether name is taken, including by a dangling link.
	Exists(ctx context.Context, name string) (bool, error)
	// Save writes size bytes from r under name. It fails with ErrExists if
	// name is taken.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Preserve stores the bytes in the preserve area and exposes them under
	// name, so removing name later leaves the preserved copy in place.
	Preserve(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Remove deletes name. A missing file is not an error.
	Remove(ctx context.Context, name string) error
	// Location describes where name lives, for logs.
	Location(name string) string
}

// Backend hands out namespaces.
type Backend interface {
	// ForUser returns the image/video namespace of the named user.
	ForUser(userName string) Namespace
	// Audio returns the shared audio namespace.
	Audio() Namespace
}

// validName rejects anything that is not a single path element.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
