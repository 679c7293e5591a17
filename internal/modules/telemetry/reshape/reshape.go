// Package reshape turns column-oriented store rows into the row-oriented
// snapshot and history shapes served over HTTP.
package reshape

import (
	"sort"
	"time"

	"biogas-server/internal/modules/telemetry/types"
	"biogas-server/internal/store"
)

// Latest folds rows into one snapshot. Later rows overwrite earlier values
// for the same field, and the snapshot timestamp is the time of the last row
// added, whatever its field. Rows of different fields may carry different
// times inside the lookback window; the snapshot keeps only one.
type Latest struct {
	values    map[string]float64
	timestamp time.Time
}

func NewLatest() *Latest {
	return &Latest{values: make(map[string]float64)}
}

// Add has the store.RowFunc signature and never fails.
func (l *Latest) Add(r store.Row) error {
	l.values[r.Field] = r.Value
	l.timestamp = r.Time
	return nil
}

func (l *Latest) Snapshot() types.Snapshot {
	values := make(map[string]float64, len(l.values))
	for k, v := range l.values {
		values[k] = v
	}
	return types.Snapshot{Values: values, Timestamp: l.timestamp}
}

// History groups window means by their exact window time.
type History struct {
	points map[int64]*types.HistoryPoint
}

func NewHistory() *History {
	return &History{points: make(map[int64]*types.HistoryPoint)}
}

func (h *History) Add(r store.Row) error {
	key := r.Time.UnixNano()
	p, ok := h.points[key]
	if !ok {
		p = &types.HistoryPoint{Time: r.Time.UTC(), Values: make(map[string]float64)}
		h.points[key] = p
	}
	p.Values[r.Field] = r.Value
	return nil
}

// Points returns the grouped points ascending by time. Arrival order across
// field series is not guaranteed, so the sort is always applied.
func (h *History) Points() []types.HistoryPoint {
	out := make([]types.HistoryPoint, 0, len(h.points))
	for _, p := range h.points {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
