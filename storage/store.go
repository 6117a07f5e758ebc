// Package storage manages the uploaded-image file tree. Files live under a
// single root, partitioned into one directory per owning user. Names
// combine a timestamp, a random component and the sanitized original name,
// so concurrent uploads from the same user can never collide.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes and removes uploaded files beneath a fixed root directory.
type Store struct {
	root string
}

// NewStore creates the root directory if needed and returns a Store over it.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", root, err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory the store writes under, for wiring the static
// file server.
func (s *Store) Root() string {
	return s.root
}

// Save durably writes the upload for the given owner and returns the path
// of the stored file, relative to the store's parent so it doubles as the
// URL path the image is later served from. The file is created with O_EXCL;
// the random name component makes a collision practically impossible, and
// O_EXCL turns the impossible case into an error instead of an overwrite.
func (s *Store) Save(ownerID int, originalName string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, strconv.Itoa(ownerID))
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
		sanitizeFilename(originalName),
	)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o660)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	return path, nil
}

// Remove deletes a stored file. A file that is already gone is not an
// error; the caller treats the reference as best-effort on deletion.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// sanitizeFilename strips any directory components from a client-supplied
// name and replaces characters that are unsafe in a path segment.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == ".." || base == string(filepath.Separator) || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
