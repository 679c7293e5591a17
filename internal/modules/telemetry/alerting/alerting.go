// Package alerting evaluates a fixed table of per-parameter bounds against
// the latest snapshot.
package alerting

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"biogas-server/internal/modules/telemetry/types"
)

// Rule raises an alert when the parameter is strictly below Min or strictly
// above Max. Values equal to a bound are in range.
type Rule struct {
	Parameter string  `yaml:"parameter"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
}

// Rules are evaluated in declaration order. A Rules value is built once at
// startup and only read afterwards.
type Rules []Rule

type rulesFile struct {
	Rules Rules `yaml:"rules"`
}

var defaultBounds = map[string][2]float64{
	"temperature":   {30, 38},
	"pressure":      {980, 1050},
	"ph_level":      {6.5, 8.0},
	"humidity":      {40, 90},
	"concentration": {50, 75},
}

// DefaultRules covers every canonical parameter, in types.Parameters order.
func DefaultRules() Rules {
	rules := make(Rules, 0, len(types.Parameters))
	for _, p := range types.Parameters {
		b, ok := defaultBounds[p]
		if !ok {
			continue
		}
		rules = append(rules, Rule{Parameter: p, Min: b[0], Max: b[1]})
	}
	return rules
}

// LoadRules reads a YAML document of the form
//
//	rules:
//	  - parameter: temperature
//	    min: 30
//	    max: 38
//
// Unknown keys are rejected.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read thresholds: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var f rulesFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse thresholds %s: %w", path, err)
	}
	if err := f.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("thresholds %s: %w", path, err)
	}
	return f.Rules, nil
}

func (rs Rules) Validate() error {
	if len(rs) == 0 {
		return errors.New("no rules defined")
	}
	seen := make(map[string]bool, len(rs))
	for i, r := range rs {
		name := strings.TrimSpace(r.Parameter)
		switch {
		case name == "":
			return fmt.Errorf("rule %d: parameter is required", i)
		case name != r.Parameter:
			return fmt.Errorf("rule %d: parameter %q has surrounding whitespace", i, r.Parameter)
		case r.Min > r.Max:
			return fmt.Errorf("rule %d (%s): min %v is greater than max %v", i, name, r.Min, r.Max)
		case seen[name]:
			return fmt.Errorf("rule %d: duplicate parameter %q", i, name)
		}
		seen[name] = true
	}
	return nil
}

// Evaluate returns one alert per rule whose parameter is present in the
// snapshot and out of bounds. Parameters the snapshot lacks are skipped.
// The result is never nil.
func Evaluate(s types.Snapshot, rules Rules) []types.Alert {
	alerts := make([]types.Alert, 0)
	for _, r := range rules {
		v, ok := s.Values[r.Parameter]
		if !ok {
			continue
		}
		var level string
		switch {
		case v > r.Max:
			level = "HIGH"
		case v < r.Min:
			level = "LOW"
		default:
			continue
		}
		alerts = append(alerts, types.Alert{
			Parameter: r.Parameter,
			Value:     v,
			Severity:  types.SeverityWarning,
			Message:   r.Parameter + " is " + level,
		})
	}
	return alerts
}
