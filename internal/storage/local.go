package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalBackend stores files on disk: images under {imageRoot}/{user}/ and
// audio under {audioRoot}/.
type LocalBackend struct {
	imageRoot string
	audioRoot string
}

// NewLocalBackend creates both roots if needed and returns the backend.
func NewLocalBackend(imageRoot, audioRoot string) (*LocalBackend, error) {
	for _, dir := range []string{imageRoot, audioRoot} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage root %q: %w", dir, err)
		}
	}
	return &LocalBackend{imageRoot: imageRoot, audioRoot: audioRoot}, nil
}

// ForUser implements Backend.
func (b *LocalBackend) ForUser(userName string) Namespace {
	dir := filepath.Join(b.imageRoot, filepath.Base(userName))
	return &localNamespace{dir: dir, preserveDir: filepath.Join(dir, PreserveDir)}
}

// Audio implements Backend.
func (b *LocalBackend) Audio() Namespace {
	return &localNamespace{dir: b.audioRoot}
}

type localNamespace struct {
	dir         string
	preserveDir string
}

func (n *localNamespace) Location(name string) string {
	return filepath.Join(n.dir, name)
}

func (n *localNamespace) Exists(_ context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := os.Lstat(n.Location(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %q: %w", name, err)
	}
	return true, nil
}

func (n *localNamespace) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if err := validName(name); err != nil {
		return err
	}
	return writeExclusive(n.dir, name, r)
}

func (n *localNamespace) Preserve(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if n.preserveDir == "" {
		return ErrPreserveUnsupported
	}
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(n.dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := writeExclusive(n.preserveDir, name, r); err != nil {
		return err
	}

	preserved := filepath.Join(n.preserveDir, name)
	target, err := filepath.Abs(preserved)
	if err != nil {
		os.Remove(preserved)
		return fmt.Errorf("resolve preserved path: %w", err)
	}
	if err := os.Symlink(target, n.Location(name)); err != nil {
		os.Remove(preserved)
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("link preserved file: %w", err)
	}
	return nil
}

func (n *localNamespace) Remove(_ context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	err := os.Remove(n.Location(name))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("remove %q: %w", name, err)
}

// writeExclusive creates dir/name, failing with ErrExists if it is taken.
func writeExclusive(dir, name string, r io.Reader) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write file content: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
