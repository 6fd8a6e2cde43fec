package assessment

import (
	"cmp"
	"slices"

	"github.com/exploopio/cvss/pkg/shared/severity"
)

// Filter selects records from a report.
type Filter struct {
	// Minimum severity, inclusive. Empty keeps every level.
	MinSeverity severity.Level

	// Keep only records carrying at least one of these tags.
	Tags []string

	// Keep only records for this asset.
	Asset string
}

// Match reports whether v passes the filter.
func (f Filter) Match(v *Vulnerability) bool {
	if f.MinSeverity != "" && !v.Severity().IsAtLeast(f.MinSeverity) {
		return false
	}
	if f.Asset != "" && v.Asset != f.Asset {
		return false
	}
	if len(f.Tags) > 0 {
		return slices.ContainsFunc(f.Tags, v.HasTag)
	}
	return true
}

// Apply returns a copy of the report holding only matching records, with
// the summary recomputed. Metadata and errors are carried over.
func (f Filter) Apply(r *Report) *Report {
	out := &Report{
		Version:         r.Version,
		Metadata:        r.Metadata,
		Vulnerabilities: make([]Vulnerability, 0, len(r.Vulnerabilities)),
		Errors:          r.Errors,
	}
	for i := range r.Vulnerabilities {
		if f.Match(&r.Vulnerabilities[i]) {
			out.Add(r.Vulnerabilities[i])
		}
	}
	return out
}

// SortBySeverity orders records by severity (highest first), then by base
// score descending, then by ID. The sort is stable.
func SortBySeverity(vulns []Vulnerability) {
	slices.SortStableFunc(vulns, func(a, b Vulnerability) int {
		if c := severity.Compare(b.Severity(), a.Severity()); c != 0 {
			return c
		}
		if c := cmp.Compare(b.CVSS.Score, a.CVSS.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
