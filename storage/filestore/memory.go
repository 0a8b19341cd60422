package filestore

import (
	"bytes"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/shida/core"
)

type memoryStorage struct {
	mutex sync.RWMutex
	files map[string][]byte
}

var _ core.FileStorage = (*memoryStorage)(nil) // interface compliance check

// NewMemoryStorage keeps files in memory. For tests.
func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (st *memoryStorage) Save(path string, r io.Reader) (int64, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return 0, errors.Wrap(err, "reading upload content")
	}
	st.mutex.Lock()
	st.files[path] = content
	st.mutex.Unlock()
	return int64(len(content)), nil
}

func (st *memoryStorage) Open(path string) (io.ReadCloser, error) {
	st.mutex.RLock()
	content, ok := st.files[path]
	st.mutex.RUnlock()
	if !ok {
		return nil, errors.New("file does not exist: " + path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (st *memoryStorage) Remove(path string) error {
	st.mutex.Lock()
	delete(st.files, path)
	st.mutex.Unlock()
	return nil
}
