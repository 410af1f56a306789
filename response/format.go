// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package response

import (
	"fmt"
	"time"
)

// HeaderStyle selects the separator written between a header's name and value.
type HeaderStyle string

const (
	// HeaderCompat writes "Name : Value". Clients of older deployments
	// of this server may depend on it, so it is the default.
	HeaderCompat HeaderStyle = "compat"

	// HeaderStandard writes "Name: Value" as RFC 9112 expects.
	HeaderStandard HeaderStyle = "standard"
)

// Separator returns the bytes placed between name and value.
func (s HeaderStyle) Separator() string {
	if s == HeaderStandard {
		return ": "
	}
	return " : "
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (s *HeaderStyle) UnmarshalText(b []byte) error {
	switch v := HeaderStyle(b); v {
	case HeaderCompat, HeaderStandard:
		*s = v
		return nil
	case "":
		*s = HeaderCompat
		return nil
	default:
		return fmt.Errorf("unknown header style: %q", string(b))
	}
}

// DateFormat selects how the Date header is rendered.
type DateFormat string

const (
	// DateCompat renders server-local time without zero padding and
	// labels it GMT, e.g. "Sat, 9 Nov 2019 1:12:23 GMT".
	DateCompat DateFormat = "compat"

	// DateHTTP renders an RFC 9110 IMF-fixdate in UTC,
	// e.g. "Sat, 09 Nov 2019 01:12:23 GMT".
	DateHTTP DateFormat = "http"
)

const imfFixdate = "Mon, 02 Jan 2006 15:04:05 GMT"

// Format renders t.
func (f DateFormat) Format(t time.Time) string {
	if f == DateHTTP {
		return t.UTC().Format(imfFixdate)
	}
	return fmt.Sprintf(
		"%s, %d %s %d %d:%d:%d GMT",
		t.Weekday().String()[:3],
		t.Day(),
		t.Month().String()[:3],
		t.Year(),
		t.Hour(),
		t.Minute(),
		t.Second(),
	)
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (f *DateFormat) UnmarshalText(b []byte) error {
	switch v := DateFormat(b); v {
	case DateCompat, DateHTTP:
		*f = v
		return nil
	case "":
		*f = DateCompat
		return nil
	default:
		return fmt.Errorf("unknown date format: %q", string(b))
	}
}
