// Package cvss implements the CVSS v3.1 base score calculator.
//
// A Metrics value holds the eight base metrics as enumerated types, so a
// field can only carry a value from its declared domain or the explicit
// Invalid zero value. All functions are pure and safe for concurrent use.
//
// Example usage:
//
//	m, err := cvss.ParseVector("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
//	if err != nil {
//	    return err
//	}
//	score, _ := cvss.CalculateScore(m) // 9.8
//	band := cvss.SeverityOf(score)      // severity.Critical
package cvss

import (
	"fmt"
	"math"
	"strings"

	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

// Version is the CVSS version implemented by this package.
const Version = "3.1"

// Metrics is the set of CVSS v3.1 base metrics. All eight fields must be
// set for the record to be scored.
type Metrics struct {
	AttackVector       AttackVector       `json:"AV" yaml:"AV"`
	AttackComplexity   AttackComplexity   `json:"AC" yaml:"AC"`
	PrivilegesRequired PrivilegesRequired `json:"PR" yaml:"PR"`
	UserInteraction    UserInteraction    `json:"UI" yaml:"UI"`
	Scope              Scope              `json:"S" yaml:"S"`
	Confidentiality    Impact             `json:"C" yaml:"C"`
	Integrity          Impact             `json:"I" yaml:"I"`
	Availability       Impact             `json:"A" yaml:"A"`
}

// Validate reports every field that does not hold a value from its domain.
func (m Metrics) Validate() error {
	var invalid []string
	if !m.AttackVector.IsValid() {
		invalid = append(invalid, "AV")
	}
	if !m.AttackComplexity.IsValid() {
		invalid = append(invalid, "AC")
	}
	if !m.PrivilegesRequired.IsValid() {
		invalid = append(invalid, "PR")
	}
	if !m.UserInteraction.IsValid() {
		invalid = append(invalid, "UI")
	}
	if !m.Scope.IsValid() {
		invalid = append(invalid, "S")
	}
	if !m.Confidentiality.IsValid() {
		invalid = append(invalid, "C")
	}
	if !m.Integrity.IsValid() {
		invalid = append(invalid, "I")
	}
	if !m.Availability.IsValid() {
		invalid = append(invalid, "A")
	}
	if len(invalid) > 0 {
		return sdkerrors.E(sdkerrors.KindInvalidMetric, "cvss.Validate",
			fmt.Sprintf("missing or invalid metrics: %s", strings.Join(invalid, ", ")))
	}
	return nil
}

// =============================================================================
// Scoring
// =============================================================================

// CalculateScore computes the CVSS v3.1 base score, rounded up to one decimal.
// It returns a KindInvalidMetric error if any field is outside its domain.
func CalculateScore(m Metrics) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, sdkerrors.Wrap(err, "cvss.CalculateScore")
	}
	return baseScore(m), nil
}

// MustScore is like CalculateScore but panics on invalid metrics.
// Use it only for metrics that were produced by ParseVector or validated.
func MustScore(m Metrics) float64 {
	score, err := CalculateScore(m)
	if err != nil {
		panic(err)
	}
	return score
}

func baseScore(m Metrics) float64 {
	impact := impactValue(m)
	if impact <= 0 {
		return 0
	}

	exploitability := exploitabilityValue(m)

	var score float64
	if m.Scope == ScopeUnchanged {
		score = math.Min(impact+exploitability, 10)
	} else {
		score = math.Min(1.08*(impact+exploitability), 10)
	}
	return Roundup(score)
}

// impactValue is the unrounded impact subscore. It can be negative under a
// changed scope when all impacts are None.
func impactValue(m Metrics) float64 {
	iss := 1 - (1-impactWeights[m.Confidentiality])*
		(1-impactWeights[m.Integrity])*
		(1-impactWeights[m.Availability])

	if m.Scope == ScopeUnchanged {
		return 6.42 * iss
	}
	return 7.52*(iss-0.029) - 3.25*math.Pow(iss-0.02, 15)
}

func exploitabilityValue(m Metrics) float64 {
	return 8.22 *
		attackVectorWeights[m.AttackVector] *
		attackComplexityWeights[m.AttackComplexity] *
		privilegesRequiredWeights[m.Scope][m.PrivilegesRequired] *
		userInteractionWeights[m.UserInteraction]
}

// ImpactSubscore returns the impact subscore rounded up to one decimal.
// Non-positive impacts are reported as 0.
func ImpactSubscore(m Metrics) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, sdkerrors.Wrap(err, "cvss.ImpactSubscore")
	}
	impact := impactValue(m)
	if impact <= 0 {
		return 0, nil
	}
	return Roundup(impact), nil
}

// ExploitabilitySubscore returns the exploitability subscore rounded up to
// one decimal.
func ExploitabilitySubscore(m Metrics) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, sdkerrors.Wrap(err, "cvss.ExploitabilitySubscore")
	}
	return Roundup(exploitabilityValue(m)), nil
}

// Roundup returns the smallest number with one decimal place that is
// greater than or equal to x. The input is first rounded to five decimals
// so float noise like 4.000000000000001 stays 4.0.
func Roundup(x float64) float64 {
	n := int64(math.Round(x * 100000))
	if n%10000 == 0 {
		return float64(n) / 100000
	}
	return float64(n/10000+1) / 10
}

// SeverityOf maps a base score to its qualitative severity band.
func SeverityOf(score float64) severity.Level {
	return severity.FromCVSS(score)
}

// =============================================================================
// Assessment
// =============================================================================

// Result bundles everything derived from one set of metrics.
type Result struct {
	Vector              string         `json:"vector" yaml:"vector"`
	Score               float64        `json:"score" yaml:"score"`
	ImpactScore         float64        `json:"impact_score" yaml:"impact_score"`
	ExploitabilityScore float64        `json:"exploitability_score" yaml:"exploitability_score"`
	Severity            severity.Level `json:"severity" yaml:"severity"`
}

// Assess validates m once and computes the vector, base score, subscores
// and severity band.
func Assess(m Metrics) (Result, error) {
	if err := m.Validate(); err != nil {
		return Result{}, sdkerrors.Wrap(err, "cvss.Assess")
	}

	score := baseScore(m)
	impact := impactValue(m)
	if impact < 0 {
		impact = 0
	}

	return Result{
		Vector:              m.Vector(),
		Score:               score,
		ImpactScore:         Roundup(impact),
		ExploitabilityScore: Roundup(exploitabilityValue(m)),
		Severity:            SeverityOf(score),
	}, nil
}
