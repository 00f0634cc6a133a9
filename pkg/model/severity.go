package model

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeverityLevel is the closed set of severity tiers used for display.
type SeverityLevel int

const (
	SeverityUnknown SeverityLevel = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
)

func (l SeverityLevel) String() string {
	switch l {
	case SeverityHigh:
		return "high"
	case SeverityMedium:
		return "medium"
	case SeverityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Severity keeps the string the service sent alongside its normalised level.
// Values outside high/medium/low land in SeverityUnknown but are never lost.
type Severity struct {
	level SeverityLevel
	raw   string
}

// ParseSeverity normalises a wire severity. Matching is case-insensitive.
func ParseSeverity(raw string) Severity {
	return Severity{level: levelOf(raw), raw: raw}
}

func levelOf(raw string) SeverityLevel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Level returns the normalised tier.
func (s Severity) Level() SeverityLevel {
	return s.level
}

// Raw returns the value exactly as received.
func (s Severity) Raw() string {
	return s.raw
}

// Label is the upper-cased display text, e.g. "HIGH" or "CRITICAL".
func (s Severity) Label() string {
	label := strings.ToUpper(strings.TrimSpace(s.raw))
	if label == "" {
		return "NONE"
	}
	return label
}

// Weight is the visual weight of the severity: 3 for high down to 0 for unknown.
// It only drives rendering.
func (s Severity) Weight() int {
	return int(s.level)
}

func (s Severity) String() string {
	return s.raw
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw)
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSeverity(raw)
	return nil
}

func (s Severity) MarshalYAML() (interface{}, error) {
	return s.raw, nil
}

func (s *Severity) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = ParseSeverity(raw)
	return nil
}
