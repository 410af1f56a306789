// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package loadgen

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Latency summarises one latency histogram.
type Latency struct {
	Count int64
	Min   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P99   time.Duration
	Max   time.Duration
}

// Report is the outcome of a load run.
type Report struct {
	Clients int

	// Attempted counts every connection a client tried to open.
	Attempted int64

	// Connected counts successful dials.
	Connected int64

	// Failed counts dials, sends or reads which returned an error.
	Failed int64

	// Rejected counts dials refused by the open circuit breaker.
	Rejected int64

	// Responses counts non-empty responses, only when waiting for them.
	Responses int64
	BytesRead int64

	Elapsed time.Duration

	// Connect measures dial time. Response measures the time from dial
	// until the server closed the connection.
	Connect  Latency
	Response Latency
}

type palette struct {
	header *color.Color
	good   *color.Color
	bad    *color.Color
	label  *color.Color
}

func newPalette(colored bool) palette {
	p := palette{
		header: color.New(color.FgCyan, color.Bold),
		good:   color.New(color.FgGreen),
		bad:    color.New(color.FgRed, color.Bold),
		label:  color.New(color.FgWhite),
	}
	for _, c := range []*color.Color{p.header, p.good, p.bad, p.label} {
		if colored {
			c.EnableColor()
			continue
		}
		c.DisableColor()
	}
	return p
}

// WriteReport writes a human readable summary of r to w.
func WriteReport(w io.Writer, r Report, colored bool) error {
	p := newPalette(colored)

	status := p.good
	if r.Failed > 0 || r.Rejected > 0 {
		status = p.bad
	}

	lines := []func() (int, error){
		func() (int, error) { return p.header.Fprintf(w, "load run finished in %s\n", r.Elapsed.Round(time.Millisecond)) },
		func() (int, error) { return p.label.Fprintf(w, "  clients:    %d\n", r.Clients) },
		func() (int, error) { return p.label.Fprintf(w, "  attempted:  %d\n", r.Attempted) },
		func() (int, error) { return p.good.Fprintf(w, "  connected:  %d\n", r.Connected) },
		func() (int, error) { return status.Fprintf(w, "  failed:     %d\n", r.Failed) },
		func() (int, error) { return status.Fprintf(w, "  rejected:   %d\n", r.Rejected) },
		func() (int, error) { return p.label.Fprintf(w, "  responses:  %d (%d bytes)\n", r.Responses, r.BytesRead) },
		func() (int, error) { return writeLatency(w, p, "connect", r.Connect) },
		func() (int, error) { return writeLatency(w, p, "response", r.Response) },
	}
	for _, line := range lines {
		_, err := line()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeLatency(w io.Writer, p palette, name string, l Latency) (int, error) {
	if l.Count == 0 {
		return p.label.Fprintf(w, "  %s latency: n/a\n", name)
	}
	return p.label.Fprint(w, fmt.Sprintf(
		"  %s latency: min=%s mean=%s p50=%s p90=%s p99=%s max=%s\n",
		name, l.Min, l.Mean, l.P50, l.P90, l.P99, l.Max,
	))
}
