package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"NewsRelay/internal/ports"
)

var artifactExt = map[string]string{
	"illustrator": ".png",
}

// BlobStore keeps stage artifacts as <artifact>_<id>.<ext> files.
type BlobStore struct {
	fs  afero.Fs
	dir string
}

var _ ports.BlobStore = (*BlobStore)(nil)

// NewBlobStore wraps any afero filesystem.
func NewBlobStore(fs afero.Fs, dir string) *BlobStore {
	return &BlobStore{fs: fs, dir: dir}
}

// NewDiskBlobStore stores artifacts under dir on the local disk.
func NewDiskBlobStore(dir string) (*BlobStore, error) {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create data dir %s", dir)
	}
	return NewBlobStore(fs, dir), nil
}

// Path returns the file an artifact lives in.
func (b *BlobStore) Path(id, artifact string) (string, error) {
	for _, part := range []string{id, artifact} {
		if part == "" || strings.ContainsAny(part, `/\`) || strings.Contains(part, "..") {
			return "", errors.Newf("invalid artifact key %q", part)
		}
	}
	ext, ok := artifactExt[artifact]
	if !ok {
		ext = ".html"
	}
	return filepath.Join(b.dir, artifact+"_"+id+ext), nil
}

// Get reads an artifact, ports.ErrNotFound when absent.
func (b *BlobStore) Get(_ context.Context, id, artifact string) ([]byte, error) {
	path, err := b.Path(id, artifact)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(b.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ports.ErrNotFound, "artifact %s", filepath.Base(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read artifact %s", path)
	}
	return data, nil
}

// Put writes an artifact atomically, replacing any previous version.
func (b *BlobStore) Put(_ context.Context, id, artifact string, data []byte) error {
	path, err := b.Path(id, artifact)
	if err != nil {
		return err
	}
	if err := b.fs.MkdirAll(b.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create data dir %s", b.dir)
	}

	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "write artifact %s", tmp)
	}
	if err := b.fs.Rename(tmp, path); err != nil {
		_ = b.fs.Remove(tmp)
		return errors.Wrapf(err, "commit artifact %s", path)
	}
	return nil
}
