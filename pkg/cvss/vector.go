package cvss

import (
	"regexp"
	"strings"

	sdkerrors "github.com/exploopio/cvss/pkg/errors"
)

// Prefix is the version token every v3.1 vector string starts with.
const Prefix = "CVSS:" + Version

// vectorPattern accepts only the canonical encoding: fixed field order,
// no optional fields, nothing trailing.
var vectorPattern = regexp.MustCompile(
	`^CVSS:3\.1/AV:([NALP])/AC:([LH])/PR:([NLH])/UI:([NR])/S:([UC])/C:([NLH])/I:([NLH])/A:([NLH])$`,
)

// Vector returns the canonical vector string for m, e.g.
// "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H".
// Invalid fields render as an empty value and will not parse back.
func (m Metrics) Vector() string {
	var b strings.Builder
	b.Grow(len(Prefix) + 36)
	b.WriteString(Prefix)
	writeField(&b, "AV", m.AttackVector.String())
	writeField(&b, "AC", m.AttackComplexity.String())
	writeField(&b, "PR", m.PrivilegesRequired.String())
	writeField(&b, "UI", m.UserInteraction.String())
	writeField(&b, "S", m.Scope.String())
	writeField(&b, "C", m.Confidentiality.String())
	writeField(&b, "I", m.Integrity.String())
	writeField(&b, "A", m.Availability.String())
	return b.String()
}

// String implements fmt.Stringer.
func (m Metrics) String() string {
	return m.Vector()
}

func writeField(b *strings.Builder, code, value string) {
	b.WriteByte('/')
	b.WriteString(code)
	b.WriteByte(':')
	b.WriteString(value)
}

// ToVector is the function form of Metrics.Vector.
func ToVector(m Metrics) string {
	return m.Vector()
}

// ParseVector decodes a canonical CVSS v3.1 vector string. Any deviation
// (other version, reordered, unknown, missing or trailing fields) fails with
// an error matching errors.ErrMalformedVector and a zero Metrics.
func ParseVector(s string) (Metrics, error) {
	match := vectorPattern.FindStringSubmatch(s)
	if match == nil {
		return Metrics{}, sdkerrors.E(sdkerrors.KindMalformedVector, "cvss.ParseVector", diagnose(s))
	}

	return Metrics{
		AttackVector:       ParseAttackVector(match[1]),
		AttackComplexity:   ParseAttackComplexity(match[2]),
		PrivilegesRequired: ParsePrivilegesRequired(match[3]),
		UserInteraction:    ParseUserInteraction(match[4]),
		Scope:              ParseScope(match[5]),
		Confidentiality:    ParseImpact(match[6]),
		Integrity:          ParseImpact(match[7]),
		Availability:       ParseImpact(match[8]),
	}, nil
}

// IsVector reports whether s is a canonical CVSS v3.1 vector string.
func IsVector(s string) bool {
	return vectorPattern.MatchString(s)
}

// ParseFailureReason classifies why s failed to parse, for metrics labels.
// It returns "" when s is a valid vector.
func ParseFailureReason(s string) string {
	switch {
	case IsVector(s):
		return ""
	case s == "":
		return "empty"
	case !strings.HasPrefix(s, "CVSS:"):
		return "missing_prefix"
	case !strings.HasPrefix(s, Prefix+"/"):
		return "unsupported_version"
	default:
		return "invalid_fields"
	}
}

func diagnose(s string) string {
	switch ParseFailureReason(s) {
	case "empty":
		return "empty vector"
	case "missing_prefix":
		return "vector must start with " + Prefix
	case "unsupported_version":
		version, _, _ := strings.Cut(strings.TrimPrefix(s, "CVSS:"), "/")
		return "unsupported CVSS version " + version + ", want " + Version
	default:
		return "fields must be AV/AC/PR/UI/S/C/I/A in order with valid codes: " + s
	}
}
