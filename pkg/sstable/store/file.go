package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/KevoDB/blocktable/pkg/common/errs"
)

// FileStore serves reads from an open table file
type FileStore struct {
	path string
	file *os.File
	size uint32
	mu   sync.RWMutex
}

// OpenFileStore opens the file at path for reading
func OpenFileStore(path string) (*FileStore, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if stat.Size() > int64(^uint32(0)) {
		file.Close()
		return nil, fmt.Errorf("%w: file of %d bytes exceeds a u32 addressable store",
			errs.ErrCapacityExceeded, stat.Size())
	}

	return &FileStore{
		path: path,
		file: file,
		size: uint32(stat.Size()),
	}, nil
}

// Read reads exactly length bytes at offset. Concurrent reads do not block
// each other; only Close takes the write lock.
func (f *FileStore) Read(offset, length uint32) ([]byte, error) {
	if err := checkRange(offset, length, f.size); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.file == nil {
		return nil, ErrClosed
	}

	data := make([]byte, length)
	n, err := f.file.ReadAt(data, int64(offset))
	if err != nil && !(err == io.EOF && n == int(length)) {
		return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", length, offset, err)
	}
	if n != int(length) {
		return nil, fmt.Errorf("%w: incomplete read of %d bytes at offset %d: got %d",
			errs.ErrOutOfBounds, length, offset, n)
	}

	return data, nil
}

// Size returns the size of the file when it was opened
func (f *FileStore) Size() uint32 {
	return f.size
}

// Path returns the file's path
func (f *FileStore) Path() string {
	return f.path
}

// Close closes the file
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	err := f.file.Close()
	f.file = nil
	return err
}

// WriteFile durably writes data to path: it writes a hidden temporary file in
// the same directory, syncs it and renames it into place, so a reader never
// observes a partially written table.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.tmp", filepath.Base(path)))

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	cleanup := func() {
		file.Close()
		os.Remove(tmpPath)
	}

	n, err := file.Write(data)
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to write table: %w", err)
	}
	if n != len(data) {
		cleanup()
		return fmt.Errorf("wrote incomplete table: %d of %d bytes", n, len(data))
	}

	if err := file.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
