// Package assessment scores vulnerability records from their CVSS v3.1
// vectors and aggregates them into reports.
//
// Example usage:
//
//	a := assessment.NewAssessor(options.WithLogger(logger))
//	report, err := a.AssessAll(ctx, records)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(report.Summary.HighestSeverity())
package assessment

import (
	"strings"
	"time"

	"github.com/exploopio/cvss/pkg/cvss"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

// ReportVersion is the schema version written to every report.
const ReportVersion = "1.0"

// Vulnerability is a single scored finding.
type Vulnerability struct {
	// Unique identifier, generated when empty
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Short human-readable title (required)
	Title string `json:"title" yaml:"title"`

	// Detailed description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Host, URL, image or repository the finding applies to
	Asset string `json:"asset,omitempty" yaml:"asset,omitempty"`

	// CVE identifier, e.g. "CVE-2021-44228"
	CVEID string `json:"cve_id,omitempty" yaml:"cve_id,omitempty"`

	// Tags for categorization
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// CVSS data: input vector or metrics, plus derived scores
	CVSS CVSS `json:"cvss" yaml:"cvss"`

	// Deduplication fingerprint
	Fingerprint string `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`

	// Scoring failure, set only for records kept with an unknown severity
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CVSS is the scoring block of a record. Vector or Metrics is input; the
// remaining fields are filled by the Assessor.
type CVSS struct {
	// CVSS version (always 3.1 once assessed)
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Vector string, canonical once assessed
	Vector string `json:"vector,omitempty" yaml:"vector,omitempty"`

	// Structured metrics, used when Vector is empty
	Metrics *cvss.Metrics `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	Score               float64        `json:"score" yaml:"score"`
	ImpactScore         float64        `json:"impact_score" yaml:"impact_score"`
	ExploitabilityScore float64        `json:"exploitability_score" yaml:"exploitability_score"`
	Severity            severity.Level `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// Severity returns the assessed severity, or unknown when unscored.
func (v *Vulnerability) Severity() severity.Level {
	if v.CVSS.Severity == "" {
		return severity.Unknown
	}
	return v.CVSS.Severity
}

// HasTag reports whether the record carries tag, ignoring case.
func (v *Vulnerability) HasTag(tag string) bool {
	for _, t := range v.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// label identifies the record in logs and error messages.
func (v *Vulnerability) label() string {
	switch {
	case v.ID != "":
		return v.ID
	case v.CVEID != "":
		return v.CVEID
	default:
		return v.Title
	}
}

// Report is the root document produced by AssessAll.
type Report struct {
	// Schema version (required)
	Version string `json:"version" yaml:"version"`

	// Report metadata
	Metadata Metadata `json:"metadata" yaml:"metadata"`

	// Scored vulnerabilities
	Vulnerabilities []Vulnerability `json:"vulnerabilities" yaml:"vulnerabilities"`

	// Counts per severity band
	Summary severity.CountBySeverity `json:"summary" yaml:"summary"`

	// Records that could not be scored
	Errors []RecordError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Metadata contains metadata about the report.
type Metadata struct {
	// Unique identifier for this report
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Timestamp when the report was generated (required)
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// Duration of the assessment in milliseconds
	DurationMs int64 `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`

	// Engine CVSS version
	CVSSVersion string `json:"cvss_version" yaml:"cvss_version"`
}

// RecordError describes one record that failed scoring.
type RecordError struct {
	Index   int    `json:"index" yaml:"index"`
	Record  string `json:"record,omitempty" yaml:"record,omitempty"`
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
}

// NewReport creates an empty report stamped with the given time.
func NewReport(id string, ts time.Time) *Report {
	return &Report{
		Version: ReportVersion,
		Metadata: Metadata{
			ID:          id,
			Timestamp:   ts,
			CVSSVersion: cvss.Version,
		},
		Vulnerabilities: make([]Vulnerability, 0),
	}
}

// Add appends a record and updates the summary.
func (r *Report) Add(v Vulnerability) {
	r.Vulnerabilities = append(r.Vulnerabilities, v)
	r.Summary.Increment(v.Severity())
}

// HasErrors reports whether any record failed scoring.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// MeetsThreshold reports whether any scored record is at or above min.
func (r *Report) MeetsThreshold(min severity.Level) bool {
	return r.Summary.AtLeast(min) > 0
}
