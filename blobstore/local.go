// SPDX-License-Identifier: MIT

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// LocalStore keeps blobs as files under a root directory. Names use '/' as
// separator and may contain subdirectories.
type LocalStore struct {
	root string
}

// NewLocalStore returns a LocalStore rooted at root. The directory is
// created lazily by Put.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root is the directory the store writes under.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean("/" + name))[1:]
	if name == "" || clean == "" || clean != strings.TrimPrefix(name, "/") {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Open maps the named file read-only. Empty files are served without a
// mapping since a zero-length region cannot be mapped.
func (s *LocalStore) Open(ctx context.Context, name string) (Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open: %w", err)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("blobstore: open %q: %w", name, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("blobstore: stat %q: %w", name, err)
	}
	if st.Size() == 0 {
		return memoryBlob(nil), nil
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("blobstore: map %q: %w", name, err)
	}

	return &localBlob{m: m}, nil
}

// Put writes data to a temporary file in the target directory, syncs it and
// renames it over the destination.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return fmt.Errorf("blobstore: put: %w", err)
	}
	dir := filepath.Dir(p)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blobstore: put %q: %w", name, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(p)+"-*")
	if err != nil {
		return fmt.Errorf("blobstore: put %q: %w", name, err)
	}
	tmpName := tmp.Name()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, p)
	}
	if err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("blobstore: put %q: %w", name, err)
	}

	return nil
}

// Delete implements Store.
func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return fmt.Errorf("blobstore: delete: %w", err)
	}
	if err = os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blobstore: delete %q: %w", name, err)
	}

	return nil
}

// List walks the root and returns slash-separated names with the prefix.
// Temporary files from interrupted Puts are skipped.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return filepath.SkipDir
			}

			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: list %q: %w", prefix, err)
	}
	sort.Strings(names)

	return names, nil
}

type localBlob struct {
	m mmap.MMap
}

func (b *localBlob) ReadAt(p []byte, off int64) (int, error) { return readAtBytes(b.m, p, off) }

func (b *localBlob) Size() int64 { return int64(len(b.m)) }

func (b *localBlob) Close() error {
	if b.m == nil {
		return nil
	}
	m := b.m
	b.m = nil

	return m.Unmap()
}
