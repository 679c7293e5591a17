// Package query builds the canonical telemetry queries. Only process
// configuration (bucket, measurement) is ever interpolated into query text.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Intent string

const (
	IntentLatest  Intent = "latest"
	IntentHistory Intent = "history"
	IntentAlerts  Intent = "alerts"
)

const (
	latestLookback  = 5 * time.Minute
	historyLookback = time.Hour
	historyEvery    = time.Minute
)

// Query describes one read against the store. A zero Every means
// "last value per field"; a positive Every means per-field window means
// with empty windows omitted.
type Query struct {
	Intent      Intent
	Bucket      string
	Measurement string
	Lookback    time.Duration
	Every       time.Duration
}

// Aggregated reports whether the query reduces each field to window means.
func (q Query) Aggregated() bool {
	return q.Every > 0
}

// Start returns the inclusive lower bound of the range relative to now.
func (q Query) Start(now time.Time) time.Time {
	return now.Add(-q.Lookback)
}

// Flux renders the query in the InfluxDB 2.x Flux language.
func (q Query) Flux() string {
	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", fluxString(q.Bucket))
	fmt.Fprintf(&b, "  |> range(start: -%s)\n", fluxDuration(q.Lookback))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %s)\n", fluxString(q.Measurement))
	if q.Aggregated() {
		fmt.Fprintf(&b, "  |> aggregateWindow(every: %s, fn: mean, createEmpty: false)\n", fluxDuration(q.Every))
	} else {
		b.WriteString("  |> last()\n")
	}
	return b.String()
}

// fluxString quotes s as a Flux string literal. "${" would start
// interpolation, so it is escaped too.
func fluxString(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
		"${", `\${`,
	)
	return `"` + r.Replace(s) + `"`
}

func fluxDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return strconv.FormatInt(int64(d/time.Hour), 10) + "h"
	case d%time.Minute == 0:
		return strconv.FormatInt(int64(d/time.Minute), 10) + "m"
	case d%time.Second == 0:
		return strconv.FormatInt(int64(d/time.Second), 10) + "s"
	default:
		return strconv.FormatInt(int64(d/time.Millisecond), 10) + "ms"
	}
}

type Builder struct {
	bucket      string
	measurement string
}

// NewBuilder fails when bucket or measurement is unset; callers treat that
// as fatal configuration, never as a per-request error.
func NewBuilder(bucket, measurement string) (*Builder, error) {
	bucket = strings.TrimSpace(bucket)
	measurement = strings.TrimSpace(measurement)
	if bucket == "" {
		return nil, errors.New("query builder: bucket is required")
	}
	if measurement == "" {
		return nil, errors.New("query builder: measurement is required")
	}
	return &Builder{bucket: bucket, measurement: measurement}, nil
}

func (b *Builder) Latest() Query {
	return b.last(IntentLatest)
}

func (b *Builder) History() Query {
	return Query{
		Intent:      IntentHistory,
		Bucket:      b.bucket,
		Measurement: b.measurement,
		Lookback:    historyLookback,
		Every:       historyEvery,
	}
}

// Alerts has the same shape as Latest; the intent only differs for logs and metrics.
func (b *Builder) Alerts() Query {
	return b.last(IntentAlerts)
}

func (b *Builder) last(intent Intent) Query {
	return Query{
		Intent:      intent,
		Bucket:      b.bucket,
		Measurement: b.measurement,
		Lookback:    latestLookback,
	}
}
