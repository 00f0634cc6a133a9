package model

// Vulnerability is a single finding reported by the analysis service.
type Vulnerability struct {
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description" yaml:"description"`
	Severity    Severity `json:"severity" yaml:"severity"`
}

// FileAnalysis groups the findings for one file. Order follows the service response.
type FileAnalysis struct {
	File            string          `json:"file" yaml:"file"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// PatchedCode is the full replacement source for a file plus a description of the change.
type PatchedCode struct {
	Code    string `json:"code" yaml:"code"`
	Summary string `json:"summary" yaml:"summary"`
}

// PatchResult is a generated patch together with the vulnerabilities it addresses.
type PatchResult struct {
	File            string          `json:"file" yaml:"file"`
	PatchedCode     PatchedCode     `json:"patched_code" yaml:"patched_code"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`
}

// SeverityCounts tallies findings per severity level.
type SeverityCounts struct {
	High    int `json:"high" yaml:"high"`
	Medium  int `json:"medium" yaml:"medium"`
	Low     int `json:"low" yaml:"low"`
	Unknown int `json:"unknown" yaml:"unknown"`
}

// Total returns the number of counted findings.
func (c SeverityCounts) Total() int {
	return c.High + c.Medium + c.Low + c.Unknown
}

// CountSeverities walks all findings and buckets them by normalised severity.
func CountSeverities(findings []FileAnalysis) SeverityCounts {
	var counts SeverityCounts
	for _, fa := range findings {
		for _, v := range fa.Vulnerabilities {
			switch v.Severity.Level() {
			case SeverityHigh:
				counts.High++
			case SeverityMedium:
				counts.Medium++
			case SeverityLow:
				counts.Low++
			default:
				counts.Unknown++
			}
		}
	}
	return counts
}
