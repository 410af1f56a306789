// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"io"
	"io/fs"
	"os"
	"sync"
)

// FileReader is an io.ReadCloser which defers opening its file until
// the first Read, so a config file can be listed as a source before
// it is known to exist.
type FileReader struct {
	path string
	open func(string) (io.ReadCloser, error)

	openOnce sync.Once
	openErr  error
	file     io.ReadCloser
}

// NewFileReader returns a FileReader for path within fsys.
func NewFileReader(fsys fs.FS, path string) *FileReader {
	return &FileReader{
		path: path,
		open: func(p string) (io.ReadCloser, error) {
			return fsys.Open(p)
		},
	}
}

// OpenFile returns a FileReader for a path on the local filesystem.
func OpenFile(path string) *FileReader {
	return &FileReader{
		path: path,
		open: func(p string) (io.ReadCloser, error) {
			return os.Open(p)
		},
	}
}

// Read implements the [io.Reader] interface.
func (r *FileReader) Read(b []byte) (int, error) {
	r.openOnce.Do(func() {
		f, err := r.open(r.path)
		if err != nil {
			r.openErr = err
			return
		}
		r.file = f
	})
	if r.openErr != nil {
		return 0, r.openErr
	}
	return r.file.Read(b)
}

// Close implements the [io.Closer] interface.
func (r *FileReader) Close() error {
	if r.file == nil {
		return nil
	}

	err := r.file.Close()
	r.file = nil
	return err
}
