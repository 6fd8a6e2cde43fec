package cvss

import (
	"fmt"

	sdkerrors "github.com/exploopio/cvss/pkg/errors"
)

// AttackVector is the AV base metric.
type AttackVector int

const (
	AttackVectorInvalid AttackVector = iota
	AttackVectorNetwork
	AttackVectorAdjacent
	AttackVectorLocal
	AttackVectorPhysical
)

var attackVectorCodes = map[AttackVector]string{
	AttackVectorNetwork:  "N",
	AttackVectorAdjacent: "A",
	AttackVectorLocal:    "L",
	AttackVectorPhysical: "P",
}

var attackVectorNames = map[AttackVector]string{
	AttackVectorNetwork:  "Network",
	AttackVectorAdjacent: "Adjacent",
	AttackVectorLocal:    "Local",
	AttackVectorPhysical: "Physical",
}

var attackVectorWeights = map[AttackVector]float64{
	AttackVectorNetwork:  0.85,
	AttackVectorAdjacent: 0.62,
	AttackVectorLocal:    0.55,
	AttackVectorPhysical: 0.2,
}

// ParseAttackVector returns the AttackVector for a one-letter code,
// or AttackVectorInvalid.
func ParseAttackVector(code string) AttackVector {
	return lookup(attackVectorCodes, code, AttackVectorInvalid)
}

func (v AttackVector) String() string                { return attackVectorCodes[v] }
func (v AttackVector) Name() string                  { return attackVectorNames[v] }
func (v AttackVector) IsValid() bool                 { return attackVectorCodes[v] != "" }
func (v AttackVector) MarshalText() ([]byte, error)  { return marshalCode("AV", v) }
func (v *AttackVector) UnmarshalText(b []byte) error { return unmarshalCode("AV", b, v, ParseAttackVector) }

// AttackComplexity is the AC base metric.
type AttackComplexity int

const (
	AttackComplexityInvalid AttackComplexity = iota
	AttackComplexityLow
	AttackComplexityHigh
)

var attackComplexityCodes = map[AttackComplexity]string{
	AttackComplexityLow:  "L",
	AttackComplexityHigh: "H",
}

var attackComplexityNames = map[AttackComplexity]string{
	AttackComplexityLow:  "Low",
	AttackComplexityHigh: "High",
}

var attackComplexityWeights = map[AttackComplexity]float64{
	AttackComplexityLow:  0.77,
	AttackComplexityHigh: 0.44,
}

// ParseAttackComplexity returns the AttackComplexity for a one-letter code,
// or AttackComplexityInvalid.
func ParseAttackComplexity(code string) AttackComplexity {
	return lookup(attackComplexityCodes, code, AttackComplexityInvalid)
}

func (v AttackComplexity) String() string               { return attackComplexityCodes[v] }
func (v AttackComplexity) Name() string                 { return attackComplexityNames[v] }
func (v AttackComplexity) IsValid() bool                { return attackComplexityCodes[v] != "" }
func (v AttackComplexity) MarshalText() ([]byte, error) { return marshalCode("AC", v) }
func (v *AttackComplexity) UnmarshalText(b []byte) error {
	return unmarshalCode("AC", b, v, ParseAttackComplexity)
}

// PrivilegesRequired is the PR base metric. Its weight depends on Scope.
type PrivilegesRequired int

const (
	PrivilegesRequiredInvalid PrivilegesRequired = iota
	PrivilegesRequiredNone
	PrivilegesRequiredLow
	PrivilegesRequiredHigh
)

var privilegesRequiredCodes = map[PrivilegesRequired]string{
	PrivilegesRequiredNone: "N",
	PrivilegesRequiredLow:  "L",
	PrivilegesRequiredHigh: "H",
}

var privilegesRequiredNames = map[PrivilegesRequired]string{
	PrivilegesRequiredNone: "None",
	PrivilegesRequiredLow:  "Low",
	PrivilegesRequiredHigh: "High",
}

var privilegesRequiredWeights = map[Scope]map[PrivilegesRequired]float64{
	ScopeUnchanged: {
		PrivilegesRequiredNone: 0.85,
		PrivilegesRequiredLow:  0.62,
		PrivilegesRequiredHigh: 0.27,
	},
	ScopeChanged: {
		PrivilegesRequiredNone: 0.85,
		PrivilegesRequiredLow:  0.68,
		PrivilegesRequiredHigh: 0.5,
	},
}

// ParsePrivilegesRequired returns the PrivilegesRequired for a one-letter
// code, or PrivilegesRequiredInvalid.
func ParsePrivilegesRequired(code string) PrivilegesRequired {
	return lookup(privilegesRequiredCodes, code, PrivilegesRequiredInvalid)
}

func (v PrivilegesRequired) String() string               { return privilegesRequiredCodes[v] }
func (v PrivilegesRequired) Name() string                 { return privilegesRequiredNames[v] }
func (v PrivilegesRequired) IsValid() bool                { return privilegesRequiredCodes[v] != "" }
func (v PrivilegesRequired) MarshalText() ([]byte, error) { return marshalCode("PR", v) }
func (v *PrivilegesRequired) UnmarshalText(b []byte) error {
	return unmarshalCode("PR", b, v, ParsePrivilegesRequired)
}

// UserInteraction is the UI base metric.
type UserInteraction int

const (
	UserInteractionInvalid UserInteraction = iota
	UserInteractionNone
	UserInteractionRequired
)

var userInteractionCodes = map[UserInteraction]string{
	UserInteractionNone:     "N",
	UserInteractionRequired: "R",
}

var userInteractionNames = map[UserInteraction]string{
	UserInteractionNone:     "None",
	UserInteractionRequired: "Required",
}

var userInteractionWeights = map[UserInteraction]float64{
	UserInteractionNone:     0.85,
	UserInteractionRequired: 0.62,
}

// ParseUserInteraction returns the UserInteraction for a one-letter code,
// or UserInteractionInvalid.
func ParseUserInteraction(code string) UserInteraction {
	return lookup(userInteractionCodes, code, UserInteractionInvalid)
}

func (v UserInteraction) String() string               { return userInteractionCodes[v] }
func (v UserInteraction) Name() string                 { return userInteractionNames[v] }
func (v UserInteraction) IsValid() bool                { return userInteractionCodes[v] != "" }
func (v UserInteraction) MarshalText() ([]byte, error) { return marshalCode("UI", v) }
func (v *UserInteraction) UnmarshalText(b []byte) error {
	return unmarshalCode("UI", b, v, ParseUserInteraction)
}

// Scope is the S base metric. It selects the impact formula and the
// PrivilegesRequired weight table.
type Scope int

const (
	ScopeInvalid Scope = iota
	ScopeUnchanged
	ScopeChanged
)

var scopeCodes = map[Scope]string{
	ScopeUnchanged: "U",
	ScopeChanged:   "C",
}

var scopeNames = map[Scope]string{
	ScopeUnchanged: "Unchanged",
	ScopeChanged:   "Changed",
}

// ParseScope returns the Scope for a one-letter code, or ScopeInvalid.
func ParseScope(code string) Scope {
	return lookup(scopeCodes, code, ScopeInvalid)
}

func (v Scope) String() string                { return scopeCodes[v] }
func (v Scope) Name() string                  { return scopeNames[v] }
func (v Scope) IsValid() bool                 { return scopeCodes[v] != "" }
func (v Scope) MarshalText() ([]byte, error)  { return marshalCode("S", v) }
func (v *Scope) UnmarshalText(b []byte) error { return unmarshalCode("S", b, v, ParseScope) }

// Impact is the value domain shared by the C, I and A base metrics.
type Impact int

const (
	ImpactInvalid Impact = iota
	ImpactNone
	ImpactLow
	ImpactHigh
)

var impactCodes = map[Impact]string{
	ImpactNone: "N",
	ImpactLow:  "L",
	ImpactHigh: "H",
}

var impactNames = map[Impact]string{
	ImpactNone: "None",
	ImpactLow:  "Low",
	ImpactHigh: "High",
}

var impactWeights = map[Impact]float64{
	ImpactNone: 0,
	ImpactLow:  0.22,
	ImpactHigh: 0.56,
}

// ParseImpact returns the Impact for a one-letter code, or ImpactInvalid.
func ParseImpact(code string) Impact {
	return lookup(impactCodes, code, ImpactInvalid)
}

func (v Impact) String() string                { return impactCodes[v] }
func (v Impact) Name() string                  { return impactNames[v] }
func (v Impact) IsValid() bool                 { return impactCodes[v] != "" }
func (v Impact) MarshalText() ([]byte, error)  { return marshalCode("CIA", v) }
func (v *Impact) UnmarshalText(b []byte) error { return unmarshalCode("CIA", b, v, ParseImpact) }

// =============================================================================
// Helpers
// =============================================================================

func lookup[T comparable](codes map[T]string, code string, invalid T) T {
	for k, v := range codes {
		if v == code {
			return k
		}
	}
	return invalid
}

type codedMetric interface {
	fmt.Stringer
	IsValid() bool
}

func marshalCode(metric string, v codedMetric) ([]byte, error) {
	if !v.IsValid() {
		return nil, sdkerrors.E(sdkerrors.KindInvalidMetric, "cvss.MarshalText",
			fmt.Sprintf("metric %s has no valid value", metric))
	}
	return []byte(v.String()), nil
}

func unmarshalCode[T codedMetric](metric string, b []byte, dst *T, parse func(string) T) error {
	v := parse(string(b))
	if !v.IsValid() {
		return sdkerrors.E(sdkerrors.KindInvalidMetric, "cvss.UnmarshalText",
			fmt.Sprintf("metric %s does not accept %q", metric, string(b)))
	}
	*dst = v
	return nil
}
