// Package objectstore provides a filesystem-backed ports.ObjectStore. The
// relay's evidence blobs are small, request-scoped uploads with no
// external sharing requirement, so a credential-free local store avoids
// wiring a cloud SDK that nothing in the configuration actually supplies
// credentials for.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"forgerelay/internal/errs"
)

// LocalStore persists objects under root, mirroring the key path as a
// filesystem path. Metadata is accepted for interface parity with
// cloud-backed stores but is not separately persisted; content type and
// size are recoverable from the evidence index row.
type LocalStore struct {
	root string
}

// NewLocalStore constructs a store rooted at root.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, metadata map[string]string) error {
	if ctx == nil {
		return fmt.Errorf("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrapf(err, "create object directory for %q", key)
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Wrapf(err, "create object %q", key)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return errs.Wrapf(err, "write object %q", key)
	}

	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, errs.Wrapf(err, "open object %q", key)
	}
	return f, nil
}

// path resolves key against root and rejects anything that would escape
// root, so a key carrying "../" segments cannot read or write outside the
// store regardless of how far upstream validation let one slip through.
func (s *LocalStore) path(key string) (string, error) {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return "", errs.Wrapf(err, "resolve object store root %q", s.root)
	}
	joined := filepath.Join(root, filepath.FromSlash(key))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q escapes store root", key)
	}
	return joined, nil
}
