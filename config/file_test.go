// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fsFunc func(string) (fs.File, error)

func (f fsFunc) Open(path string) (fs.File, error) {
	return f(path)
}

func TestFileReader_Read(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the fs.FS fails to open the file", func(t *testing.T) {
			openErr := errors.New("failed to open")
			fsys := fsFunc(func(s string) (fs.File, error) {
				return nil, openErr
			})

			r := NewFileReader(fsys, "gateway.yaml")
			_, err := io.ReadAll(r)
			if !assert.ErrorIs(t, err, openErr) {
				return
			}
		})

		t.Run("if the local file does not exist", func(t *testing.T) {
			r := OpenFile(filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := io.ReadAll(r)
			if !assert.ErrorIs(t, err, os.ErrNotExist) {
				return
			}
		})
	})

	t.Run("will be usable as a yaml source", func(t *testing.T) {
		fsys := fstest.MapFS{
			"gateway.yaml": &fstest.MapFile{Data: []byte("server:\n  port: 8000\n")},
		}

		m, err := Read(FromYaml(NewFileReader(fsys, "gateway.yaml")))
		require.NoError(t, err)

		var cfg nestedConfig
		err = m.Unmarshal(&cfg)
		require.NoError(t, err)

		assert.Equal(t, 8000, cfg.Server.Port)
	})
}

func TestFileReader_Close(t *testing.T) {
	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if Close is called before the underlying file has been opened", func(t *testing.T) {
			fsys := fsFunc(func(s string) (fs.File, error) {
				return nil, nil
			})

			r := NewFileReader(fsys, "gateway.yaml")
			err := r.Close()
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}
