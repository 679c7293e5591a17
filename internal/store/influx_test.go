package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"biogas-server/internal/query"
)

const latestCSV = "#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,double,string,string\n" +
	"#group,false,false,true,true,false,false,true,true\n" +
	"#default,_result,,,,,,,\n" +
	",result,table,_start,_stop,_time,_value,_field,_measurement\n" +
	",,0,2026-10-18T11:55:00Z,2026-10-18T12:00:00Z,2026-10-18T11:59:30Z,39,temperature,biogas_sensor\n" +
	",,1,2026-10-18T11:55:00Z,2026-10-18T12:00:00Z,2026-10-18T11:59:40Z,1020,pressure,biogas_sensor\n" +
	"\n" +
	"#datatype,string,long,dateTime:RFC3339,dateTime:RFC3339,dateTime:RFC3339,string,string,string\n" +
	"#group,false,false,true,true,false,false,true,true\n" +
	"#default,_result,,,,,,,\n" +
	",result,table,_start,_stop,_time,_value,_field,_measurement\n" +
	",,2,2026-10-18T11:55:00Z,2026-10-18T12:00:00Z,2026-10-18T11:59:50Z,ok,status,biogas_sensor\n" +
	"\n"

type fakeInflux struct {
	t      *testing.T
	status int
	body   string

	mu      sync.Mutex
	lastOrg string
	lastQ   string
}

func (f *fakeInflux) last() (org, q string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastOrg, f.lastQ
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ping":
		w.WriteHeader(http.StatusNoContent)
	case "/api/v2/query":
		var req struct {
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("decode query request: %v", err)
		}
		f.mu.Lock()
		f.lastOrg = r.URL.Query().Get("org")
		f.lastQ = req.Query
		f.mu.Unlock()
		if f.status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(f.body))
	default:
		http.NotFound(w, r)
	}
}

func newInfluxTestStore(t *testing.T, f *fakeInflux) *InfluxStore {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	s := NewInfluxStore(ts.URL, "test-token", "biogas", nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func latestQuery(t *testing.T) query.Query {
	t.Helper()
	b, err := query.NewBuilder("biogas_data", "biogas_sensor")
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b.Latest()
}

func TestInfluxStore_QueryStreamsNumericRows(t *testing.T) {
	f := &fakeInflux{t: t, status: http.StatusOK, body: latestCSV}
	s := newInfluxTestStore(t, f)

	var rows []Row
	err := s.Query(context.Background(), latestQuery(t), func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	org, flux := f.last()
	if org != "biogas" {
		t.Errorf("org = %q; want biogas", org)
	}
	if !strings.Contains(flux, `from(bucket: "biogas_data")`) || !strings.Contains(flux, "last()") {
		t.Errorf("query = %q; want latest flux", flux)
	}

	if len(rows) != 2 {
		t.Fatalf("rows = %d; want 2 (string value skipped): %+v", len(rows), rows)
	}
	if rows[0].Field != "temperature" || rows[0].Value != 39 || rows[0].Table != 0 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	wantTime := time.Date(2026, 10, 18, 11, 59, 40, 0, time.UTC)
	if rows[1].Field != "pressure" || rows[1].Value != 1020 || !rows[1].Time.Equal(wantTime) {
		t.Errorf("rows[1] = %+v", rows[1])
	}
}

func TestInfluxStore_ServerErrorIsQueryFailed(t *testing.T) {
	f := &fakeInflux{t: t, status: http.StatusBadRequest, body: `{"code":"invalid","message":"compilation failed: bad bucket"}`}
	s := newInfluxTestStore(t, f)

	err := s.Query(context.Background(), latestQuery(t), func(Row) error { return nil })
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("err = %v; want ErrQueryFailed", err)
	}
	if !strings.Contains(err.Error(), "compilation failed") {
		t.Errorf("err = %q; want underlying message", err)
	}
	if strings.Contains(err.Error(), "test-token") {
		t.Errorf("err = %q leaks the token", err)
	}
}

func TestInfluxStore_CallbackErrorAbortsStream(t *testing.T) {
	f := &fakeInflux{t: t, status: http.StatusOK, body: latestCSV}
	s := newInfluxTestStore(t, f)

	calls := 0
	err := s.Query(context.Background(), latestQuery(t), func(Row) error {
		calls++
		return errors.New("consumer gave up")
	})
	if !errors.Is(err, ErrQueryFailed) {
		t.Fatalf("err = %v; want ErrQueryFailed", err)
	}
	if calls != 1 {
		t.Errorf("callback calls = %d; want 1", calls)
	}
}

func TestInfluxStore_Ping(t *testing.T) {
	s := newInfluxTestStore(t, &fakeInflux{t: t})
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if s.Kind() != "InfluxDB" {
		t.Errorf("Kind() = %q; want InfluxDB", s.Kind())
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		in     any
		want   float64
		wantOK bool
	}{
		{in: 7.5, want: 7.5, wantOK: true},
		{in: int64(3), want: 3, wantOK: true},
		{in: uint64(4), want: 4, wantOK: true},
		{in: "7", wantOK: false},
		{in: true, wantOK: false},
		{in: nil, wantOK: false},
	}
	for _, tt := range tests {
		got, ok := toFloat(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("toFloat(%#v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
