// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/z5labs/gateway/internal/try"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a config document.
type Format string

const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// FormatOf picks a Format from the extension of path. Anything which
// is not .json is treated as YAML, a superset of JSON.
func FormatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return JSON
	}
	return YAML
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (f *Format) UnmarshalText(b []byte) error {
	switch v := Format(strings.ToLower(string(b))); v {
	case YAML, "yml":
		*f = YAML
	case JSON:
		*f = JSON
	default:
		return UnknownFormatError{Format: v}
	}
	return nil
}

// UnknownFormatError is returned for a Format no decoder exists for.
type UnknownFormatError struct {
	Format Format
}

// Error implements the [error] interface.
func (e UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown config format: %q", string(e.Format))
}

// DecodeError occurs if a document is not valid in its Format.
type DecodeError struct {
	Format Format
	Cause  error
}

// Error implements the [error] interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Format, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e DecodeError) Unwrap() error {
	return e.Cause
}

// Decoder is a Source whose values are decoded from a document read
// from r. If r is an [io.Closer] it is closed once read.
type Decoder struct {
	r      io.Reader
	format Format
}

// Decode returns a Source which decodes r as f.
func Decode(r io.Reader, f Format) Decoder {
	return Decoder{r: r, format: f}
}

// FromYaml is shorthand for Decode(r, YAML).
func FromYaml(r io.Reader) Decoder {
	return Decode(r, YAML)
}

// FromJson is shorthand for Decode(r, JSON).
func FromJson(r io.Reader) Decoder {
	return Decode(r, JSON)
}

// Apply implements the [Source] interface.
func (d Decoder) Apply(store Store) (err error) {
	defer try.Close(&err, d.r)

	unmarshal, err := d.unmarshaler()
	if err != nil {
		return err
	}

	b, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}

	m := make(map[string]any)
	err = unmarshal(b, &m)
	if err != nil {
		return DecodeError{Format: d.format, Cause: err}
	}
	return Map(m).Apply(store)
}

func (d Decoder) unmarshaler() (func([]byte, any) error, error) {
	switch d.format {
	case YAML:
		return yaml.Unmarshal, nil
	case JSON:
		return json.Unmarshal, nil
	default:
		return nil, UnknownFormatError{Format: d.format}
	}
}
