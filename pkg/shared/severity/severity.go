// Package severity provides severity band definitions and mappings
// for CVSS scored vulnerabilities.
//
// Bands follow the CVSS v3.1 qualitative rating scale. The mapping is a pure
// function of the score and carries no state of its own.
package severity

import "strings"

// Level represents a severity band.
type Level string

const (
	// Critical - score 9.0 to 10.0.
	Critical Level = "critical"

	// High - score 7.0 to 8.9.
	High Level = "high"

	// Medium - score 4.0 to 6.9.
	Medium Level = "medium"

	// Low - score 0.1 to 3.9.
	Low Level = "low"

	// None - score exactly 0.0; the vulnerability has no impact.
	None Level = "none"

	// Unknown - severity could not be determined (unscored or unparsable input).
	Unknown Level = "unknown"
)

// AllLevels returns all severity levels in order of priority (highest first).
func AllLevels() []Level {
	return []Level{Critical, High, Medium, Low, None, Unknown}
}

// String returns the string representation of the severity level.
func (l Level) String() string {
	return string(l)
}

// Title returns the display form used by reports ("Critical", "None", ...).
func (l Level) Title() string {
	if l == "" {
		return ""
	}
	return strings.ToUpper(string(l[:1])) + string(l[1:])
}

// Priority returns the numeric priority of the severity level.
// Higher numbers = higher priority.
func (l Level) Priority() int {
	switch l {
	case Critical:
		return 5
	case High:
		return 4
	case Medium:
		return 3
	case Low:
		return 2
	case None:
		return 1
	default:
		return 0
	}
}

// IsHigherThan returns true if this severity is higher than the other.
func (l Level) IsHigherThan(other Level) bool {
	return l.Priority() > other.Priority()
}

// IsAtLeast returns true if this severity is at least as high as the other.
func (l Level) IsAtLeast(other Level) bool {
	return l.Priority() >= other.Priority()
}

// IsValid reports whether l is one of the declared levels.
func (l Level) IsValid() bool {
	switch l {
	case Critical, High, Medium, Low, None, Unknown:
		return true
	default:
		return false
	}
}

// FromString normalizes severity strings to a standard Level.
// Accepts the band names in any case plus a few common aliases.
func FromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "CRIT":
		return Critical
	case "HIGH":
		return High
	case "MEDIUM", "MODERATE", "MED":
		return Medium
	case "LOW":
		return Low
	case "NONE", "INFO", "INFORMATIONAL":
		return None
	default:
		return Unknown
	}
}

// FromCVSS converts a CVSS score (0.0-10.0) to a severity level.
// Intervals are half-open and evaluated in order:
//   - 0.0: None
//   - (0.0, 4.0): Low
//   - [4.0, 7.0): Medium
//   - [7.0, 9.0): High
//   - [9.0, 10.0]: Critical
func FromCVSS(score float64) Level {
	switch {
	case score >= 9.0:
		return Critical
	case score >= 7.0:
		return High
	case score >= 4.0:
		return Medium
	case score > 0:
		return Low
	default:
		return None
	}
}

// ToCVSSRange returns the CVSS score range for a severity level.
// Returns (min, max) where min is inclusive and max is exclusive.
func (l Level) ToCVSSRange() (float64, float64) {
	switch l {
	case Critical:
		return 9.0, 10.1
	case High:
		return 7.0, 9.0
	case Medium:
		return 4.0, 7.0
	case Low:
		return 0.1, 4.0
	case None:
		return 0.0, 0.1
	default:
		return 0.0, 0.0
	}
}

// Compare returns:
//
//	-1 if a < b (a is lower severity)
//	 0 if a == b
//	+1 if a > b (a is higher severity)
func Compare(a, b Level) int {
	pa, pb := a.Priority(), b.Priority()
	switch {
	case pa < pb:
		return -1
	case pa > pb:
		return 1
	default:
		return 0
	}
}

// Max returns the higher severity of two levels.
func Max(a, b Level) Level {
	if a.IsHigherThan(b) {
		return a
	}
	return b
}

// Min returns the lower severity of two levels.
func Min(a, b Level) Level {
	if a.IsHigherThan(b) {
		return b
	}
	return a
}

// CountBySeverity counts vulnerabilities by severity level.
type CountBySeverity struct {
	Critical int `json:"critical" yaml:"critical"`
	High     int `json:"high" yaml:"high"`
	Medium   int `json:"medium" yaml:"medium"`
	Low      int `json:"low" yaml:"low"`
	None     int `json:"none" yaml:"none"`
	Unknown  int `json:"unknown" yaml:"unknown"`
	Total    int `json:"total" yaml:"total"`
}

// Increment increases the count for the given severity.
func (c *CountBySeverity) Increment(level Level) {
	c.Total++
	switch level {
	case Critical:
		c.Critical++
	case High:
		c.High++
	case Medium:
		c.Medium++
	case Low:
		c.Low++
	case None:
		c.None++
	default:
		c.Unknown++
	}
}

// HighestSeverity returns the highest severity level that has a non-zero count.
func (c *CountBySeverity) HighestSeverity() Level {
	if c.Critical > 0 {
		return Critical
	}
	if c.High > 0 {
		return High
	}
	if c.Medium > 0 {
		return Medium
	}
	if c.Low > 0 {
		return Low
	}
	if c.None > 0 {
		return None
	}
	return Unknown
}

// AtLeast returns how many counted vulnerabilities are at or above min.
// Unknown entries are never counted.
func (c *CountBySeverity) AtLeast(min Level) int {
	n := 0
	for _, lvl := range []Level{Critical, High, Medium, Low, None} {
		if lvl.IsAtLeast(min) {
			n += c.Count(lvl)
		}
	}
	return n
}

// Count returns the count for a single level.
func (c *CountBySeverity) Count(level Level) int {
	switch level {
	case Critical:
		return c.Critical
	case High:
		return c.High
	case Medium:
		return c.Medium
	case Low:
		return c.Low
	case None:
		return c.None
	default:
		return c.Unknown
	}
}
