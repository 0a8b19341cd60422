package core

import "io"

// FileStorage abstracts where uploaded files live.
type FileStorage interface {
	// Save writes r to the given relative path and returns the number of bytes written.
	Save(path string, r io.Reader) (int64, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
}
