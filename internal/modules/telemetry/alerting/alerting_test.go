package alerting

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"biogas-server/internal/modules/telemetry/types"
)

func snapshot(values map[string]float64) types.Snapshot {
	return types.Snapshot{Values: values, Timestamp: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
}

func TestEvaluate_SingleHighTemperature(t *testing.T) {
	s := snapshot(map[string]float64{
		"temperature":   39,
		"pressure":      1020,
		"ph_level":      7.0,
		"humidity":      70,
		"concentration": 65,
	})

	got := Evaluate(s, DefaultRules())
	want := []types.Alert{{Parameter: "temperature", Value: 39, Severity: "warning", Message: "temperature is HIGH"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Evaluate = %+v; want %+v", got, want)
	}
}

func TestEvaluate_Bounds(t *testing.T) {
	rules := Rules{{Parameter: "ph_level", Min: 6.5, Max: 8}}
	tests := []struct {
		name    string
		value   float64
		wantMsg string
	}{
		{name: "at min", value: 6.5},
		{name: "at max", value: 8},
		{name: "inside", value: 7.2},
		{name: "below min", value: 6.49, wantMsg: "ph_level is LOW"},
		{name: "above max", value: 8.01, wantMsg: "ph_level is HIGH"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(snapshot(map[string]float64{"ph_level": tt.value}), rules)
			if tt.wantMsg == "" {
				if len(got) != 0 {
					t.Fatalf("alerts = %+v; want none", got)
				}
				return
			}
			if len(got) != 1 || got[0].Message != tt.wantMsg || got[0].Value != tt.value {
				t.Fatalf("alerts = %+v; want one %q", got, tt.wantMsg)
			}
		})
	}
}

func TestEvaluate_MissingParameterIsSkipped(t *testing.T) {
	// A missing temperature must not be read as 0 and flagged LOW.
	got := Evaluate(snapshot(map[string]float64{"pressure": 1000}), DefaultRules())
	if len(got) != 0 {
		t.Fatalf("alerts = %+v; want none", got)
	}
}

func TestEvaluate_RuleOrderAndIdempotence(t *testing.T) {
	s := snapshot(map[string]float64{"concentration": 80, "temperature": 10, "humidity": 95})

	first := Evaluate(s, DefaultRules())
	second := Evaluate(s, DefaultRules())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Evaluate not deterministic: %+v vs %+v", first, second)
	}

	var got []string
	for _, a := range first {
		got = append(got, a.Parameter)
	}
	want := []string{"temperature", "humidity", "concentration"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("alert order = %v; want %v", got, want)
	}
}

func TestEvaluate_EmptySnapshotIsNonNil(t *testing.T) {
	got := Evaluate(types.Snapshot{}, DefaultRules())
	if got == nil || len(got) != 0 {
		t.Fatalf("Evaluate = %#v; want empty non-nil slice", got)
	}
}

func TestDefaultRules_Valid(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Fatalf("DefaultRules().Validate() = %v", err)
	}
	var params []string
	for _, r := range DefaultRules() {
		params = append(params, r.Parameter)
	}
	if !reflect.DeepEqual(params, types.Parameters) {
		t.Errorf("default rule parameters = %v; want %v", params, types.Parameters)
	}
	if len(defaultBounds) != len(types.Parameters) {
		t.Errorf("defaultBounds has %d entries; want one per parameter (%d)", len(defaultBounds), len(types.Parameters))
	}
	if got := DefaultRules()[0]; got != (Rule{Parameter: "temperature", Min: 30, Max: 38}) {
		t.Errorf("DefaultRules()[0] = %+v", got)
	}
}

func TestRulesValidate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
		want  string
	}{
		{name: "empty", rules: Rules{}, want: "no rules"},
		{name: "blank parameter", rules: Rules{{Parameter: " ", Min: 1, Max: 2}}, want: "parameter is required"},
		{name: "padded parameter", rules: Rules{{Parameter: " ph_level", Min: 1, Max: 2}}, want: "whitespace"},
		{name: "min above max", rules: Rules{{Parameter: "pressure", Min: 2, Max: 1}}, want: "greater than max"},
		{name: "duplicate", rules: Rules{{Parameter: "humidity", Max: 1}, {Parameter: "humidity", Max: 2}}, want: "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rules.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v; want error containing %q", err, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write thresholds: %v", err)
	}
	return path
}

func TestLoadRules(t *testing.T) {
	path := writeFile(t, `
rules:
  - parameter: temperature
    min: 32
    max: 40
  - parameter: ph_level
    min: 6.8
    max: 7.6
`)
	got, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	want := Rules{
		{Parameter: "temperature", Min: 32, Max: 40},
		{Parameter: "ph_level", Min: 6.8, Max: 7.6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadRules = %+v; want %+v", got, want)
	}
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown key", body: "rules:\n  - parameter: temperature\n    minimum: 1\n    max: 2\n"},
		{name: "not yaml", body: "rules: [\n"},
		{name: "invalid rule", body: "rules:\n  - parameter: pressure\n    min: 10\n    max: 1\n"},
		{name: "no rules", body: "rules: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRules(writeFile(t, tt.body)); err == nil {
				t.Fatal("LoadRules error = nil; want non-nil")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Fatal("LoadRules error = nil; want non-nil")
		}
	})
}
