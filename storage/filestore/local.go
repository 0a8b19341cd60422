// Package filestore provides core.FileStorage implementations for uploaded files.
package filestore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
)

type localStorage struct {
	root string
}

var _ core.FileStorage = (*localStorage)(nil) // interface compliance check

// NewLocalStorage stores files on disk under conf.Upload.MediaRoot.
func NewLocalStorage(conf *core.Config) *localStorage {
	return &localStorage{root: conf.Upload.MediaRoot}
}

func (st *localStorage) abs(path string) string {
	return filepath.Join(st.root, filepath.FromSlash(path))
}

func (st *localStorage) Save(path string, r io.Reader) (int64, error) {
	fp := st.abs(path)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return 0, errors.Wrap(err, "creating upload dir")
	}
	f, err := os.Create(fp)
	if err != nil {
		return 0, errors.Wrap(err, "creating upload file")
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, errors.Wrap(err, "writing upload file")
	}
	return n, nil
}

func (st *localStorage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(st.abs(path))
	if err != nil {
		return nil, errors.Wrap(err, "opening upload file")
	}
	return f, nil
}

func (st *localStorage) Remove(path string) error {
	if err := os.Remove(st.abs(path)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing upload file")
	}
	return nil
}
