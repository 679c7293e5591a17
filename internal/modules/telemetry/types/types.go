package types

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Parameters is the canonical sensor set reported by /api/sensors/latest.
var Parameters = []string{"temperature", "pressure", "ph_level", "humidity", "concentration"}

// Snapshot is the latest value per parameter. All values share Timestamp,
// which is the time of the row seen last while reshaping.
type Snapshot struct {
	Values    map[string]float64
	Timestamp time.Time
}

func (s Snapshot) Empty() bool {
	return len(s.Values) == 0
}

// LatestReading is the /api/sensors/latest payload. Parameters absent from
// a non-empty snapshot are reported as 0.
type LatestReading struct {
	Temperature   float64   `json:"temperature"`
	Pressure      float64   `json:"pressure"`
	PhLevel       float64   `json:"ph_level"`
	Humidity      float64   `json:"humidity"`
	Concentration float64   `json:"concentration"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLatestReading(s Snapshot) LatestReading {
	return LatestReading{
		Temperature:   s.Values["temperature"],
		Pressure:      s.Values["pressure"],
		PhLevel:       s.Values["ph_level"],
		Humidity:      s.Values["humidity"],
		Concentration: s.Values["concentration"],
		Timestamp:     s.Timestamp.UTC(),
	}
}

// HistoryPoint is one aggregation window. Values is sparse: a parameter with
// no samples in the window is absent.
type HistoryPoint struct {
	Time   time.Time
	Values map[string]float64
}

// MarshalJSON flattens the point to {"time": ..., "<param>": <mean>, ...}
// with parameters in name order.
func (p HistoryPoint) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"time":`)
	ts, err := json.Marshal(p.Time.UTC())
	if err != nil {
		return nil, err
	}
	buf.Write(ts)

	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		if k == "time" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name, _ := json.Marshal(k)
		val, err := json.Marshal(p.Values[k])
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type Alert struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Severity  string  `json:"type"`
	Message   string  `json:"message"`
}

const SeverityWarning = "warning"
