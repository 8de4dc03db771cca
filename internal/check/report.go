// Package check validates the article corpus: front matter schema, fenced
// code blocks and link targets. Each rule produces findings that are
// collected into a report.
package check

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity grades a finding.
type Severity uint8

const (
	SeverityInfo    Severity = 0
	SeverityWarning Severity = 1
	SeverityError   Severity = 2
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a severity name to its value.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Finding is one rule violation in one file.
type Finding struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	Message  string   `json:"message"`
}

// Report collects the findings of one validation run.
type Report struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	Articles   int            `json:"articles"`
	Findings   []Finding      `json:"findings"`
	Counts     map[string]int `json:"counts"`
}

// NewReport starts an empty report with a fresh run ID.
func NewReport() *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Counts:    make(map[string]int),
	}
}

// Add appends findings to the report.
func (r *Report) Add(findings ...Finding) {
	r.Findings = append(r.Findings, findings...)
}

// Finalize sorts the findings, fills the severity counts and stamps the
// duration. Calling it again after further Adds re-sorts and recounts.
func (r *Report) Finalize() {
	sort.Slice(r.Findings, func(i, j int) bool {
		fi, fj := r.Findings[i], r.Findings[j]
		if fi.Path != fj.Path {
			return fi.Path < fj.Path
		}
		if fi.Line != fj.Line {
			return fi.Line < fj.Line
		}
		return fi.Rule < fj.Rule
	})

	r.Counts = make(map[string]int)
	for _, f := range r.Findings {
		r.Counts[f.Severity.String()]++
	}
	r.DurationMS = time.Since(r.StartedAt).Milliseconds()
}

// Worst returns the highest severity present, or SeverityInfo for a
// clean report.
func (r *Report) Worst() Severity {
	worst := SeverityInfo
	for _, f := range r.Findings {
		if f.Severity > worst {
			worst = f.Severity
		}
	}
	return worst
}

// HasAtLeast reports whether any finding reaches the given severity.
func (r *Report) HasAtLeast(s Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= s {
			return true
		}
	}
	return false
}

// ExitCode maps the report to a process exit code: 0 when no finding
// reaches failOn, 1 otherwise.
func (r *Report) ExitCode(failOn Severity) int {
	if r.HasAtLeast(failOn) {
		return 1
	}
	return 0
}
