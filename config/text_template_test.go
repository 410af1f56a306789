// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readFunc func([]byte) (int, error)

func (f readFunc) Read(b []byte) (int, error) {
	return f(b)
}

func TestTextTemplateRenderer_Read(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying io.Reader fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})

		t.Run("if the underlying io.Reader contains an invalid text/template", func(t *testing.T) {
			r := strings.NewReader(`{{ hello`)

			ttr := RenderTextTemplate(r)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateParseError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
		})

		t.Run("if the parsed text/template fails to execute", func(t *testing.T) {
			r := strings.NewReader(`{{ hello }}`)

			ttr := RenderTextTemplate(
				r,
				TemplateFunc("hello", func() (string, error) {
					return "", errors.New("no hello")
				}),
			)
			_, err := io.ReadAll(ttr)

			var ierr TextTemplateExecError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
		})
	})

	t.Run("will render", func(t *testing.T) {
		t.Run("if the template looks up an environment variable", func(t *testing.T) {
			t.Setenv("GATEWAY_TEST_PORT", "9123")

			ttr := RenderTextTemplate(strings.NewReader(`port: {{env "GATEWAY_TEST_PORT" | default "8888"}}`))
			b, err := io.ReadAll(ttr)
			require.NoError(t, err)

			assert.Equal(t, "port: 9123", string(b))
		})

		t.Run("if the template falls back to a default", func(t *testing.T) {
			ttr := RenderTextTemplate(strings.NewReader(`port: {{env "GATEWAY_TEST_UNSET_PORT" | default "8888"}}`))
			b, err := io.ReadAll(ttr)
			require.NoError(t, err)

			assert.Equal(t, "port: 8888", string(b))
		})
	})
}
