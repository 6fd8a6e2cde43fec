// Package fingerprint generates stable identifiers for vulnerability records
// so the same issue on the same asset collapses to one entry across reports.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Type selects the fingerprint algorithm.
type Type string

const (
	// TypeCVE is for records that reference a published CVE identifier.
	TypeCVE Type = "cve"

	// TypeGeneric is for records identified only by title and vector.
	TypeGeneric Type = "generic"
)

// Input holds the record attributes that feed a fingerprint.
type Input struct {
	Type Type

	Asset  string // Host, URL, image or repository the record applies to
	CVEID  string // e.g. "CVE-2021-44228"
	Title  string
	Vector string // Canonical CVSS vector string
}

// Generate creates a fingerprint for the given input.
// The fingerprint is a SHA256 hash (64 hex characters).
//
//   - CVE: asset + CVE ID (re-scoring a CVE does not create a new record)
//   - Generic: asset + title + vector
func Generate(input Input) string {
	var data string

	switch input.Type {
	case TypeCVE:
		data = fmt.Sprintf("cve:%s:%s",
			normalizeAsset(input.Asset),
			strings.ToUpper(strings.TrimSpace(input.CVEID)),
		)

	default:
		data = fmt.Sprintf("generic:%s:%s:%s",
			normalizeAsset(input.Asset),
			normalize(input.Title),
			strings.TrimSpace(input.Vector),
		)
	}

	return Hash(data)
}

// GenerateCVE creates a fingerprint for a CVE on an asset.
func GenerateCVE(asset, cveID string) string {
	return Generate(Input{Type: TypeCVE, Asset: asset, CVEID: cveID})
}

// GenerateGeneric creates a fingerprint from title and vector.
func GenerateGeneric(asset, title, vector string) string {
	return Generate(Input{Type: TypeGeneric, Asset: asset, Title: title, Vector: vector})
}

// DetectType picks TypeCVE when a CVE ID is present.
func DetectType(input Input) Type {
	if strings.TrimSpace(input.CVEID) != "" {
		return TypeCVE
	}
	return TypeGeneric
}

// GenerateAuto detects the type when unset and generates a fingerprint.
func GenerateAuto(input Input) string {
	if input.Type == "" {
		input.Type = DetectType(input)
	}
	return Generate(input)
}

// Hash computes SHA256 hash of the input string.
// Returns 64 hex characters.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// normalize trims, lowercases and uses forward slashes.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "\\", "/")
	return s
}

// normalizeAsset strips the scheme, trailing slash and default ports so
// "https://Example.com:443/" and "example.com" fingerprint identically.
func normalizeAsset(asset string) string {
	asset = normalize(asset)

	asset = strings.TrimPrefix(asset, "https://")
	asset = strings.TrimPrefix(asset, "http://")
	asset = strings.TrimSuffix(asset, "/")
	asset = strings.TrimSuffix(asset, ":443")
	asset = strings.TrimSuffix(asset, ":80")

	return asset
}
