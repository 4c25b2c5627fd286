// Package storage keeps uploaded media on the local filesystem and serves
// it under a public URL prefix.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidName is returned for object names that escape the store root.
var ErrInvalidName = errors.New("invalid object name")

// ObjectInfo represents metadata about a stored object.
type ObjectInfo struct {
	Name        string
	Size        int64
	ContentType string
	URL         string
	ModTime     time.Time
}

// BlobStore stores opaque blobs and returns the URL they are served at.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) (*ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	URL(name string) string
}

// LocalStore implements BlobStore on a directory.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at root whose objects are served under
// baseURL, e.g. "/media/".
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &LocalStore{root: root, baseURL: baseURL}, nil
}

// Root returns the directory objects are stored in.
func (s *LocalStore) Root() string {
	return s.root
}

// URL returns the public URL of the named object.
func (s *LocalStore) URL(name string) string {
	return s.baseURL + name
}

// path maps an object name onto a file below the root.
func (s *LocalStore) path(name string) (string, error) {
	clean := path.Clean("/" + name)[1:]
	if clean == "" || clean != name {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes r to the named object. The object appears atomically and never
// replaces an existing one: on a name clash a short random suffix is added
// before the extension, and the returned ObjectInfo carries the final name.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (*ObjectInfo, error) {
	dst, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(dst), ".tmp-"+uuid.New().String())
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp)

	size, err := io.Copy(f, contextReader{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write object: %w", err)
	}

	final := name
	for attempt := 0; ; attempt++ {
		// a hard link fails instead of replacing an existing file
		err := os.Link(tmp, dst)
		if err == nil {
			break
		}
		if !os.IsExist(err) || attempt == maxNameAttempts {
			return nil, fmt.Errorf("failed to store object: %w", err)
		}
		final = availableName(name)
		if dst, err = s.path(final); err != nil {
			return nil, err
		}
	}

	return &ObjectInfo{
		Name:        final,
		Size:        size,
		ContentType: contentType,
		URL:         s.URL(final),
		ModTime:     time.Now(),
	}, nil
}

const maxNameAttempts = 5

// availableName derives an alternative for a taken object name,
// "chat/photo.png" becoming "chat/photo_1a2b3c4d.png".
func availableName(name string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + uuid.New().String()[:8] + ext
}

// Delete removes the named object. Missing objects are not an error.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// SafeName reduces an uploaded file name to a single path element.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
