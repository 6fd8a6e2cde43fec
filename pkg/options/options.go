// Package options provides functional options for the assessment toolkit.
package options

import (
	"time"

	"github.com/google/uuid"

	"github.com/exploopio/cvss/pkg/compress"
	"github.com/exploopio/cvss/pkg/core"
	"github.com/exploopio/cvss/pkg/metrics"
)

// =============================================================================
// Assessor Options
// =============================================================================

// AssessorConfig holds the final assessor configuration.
type AssessorConfig struct {
	Logger      core.Logger
	Metrics     metrics.Collector
	Clock       func() time.Time
	NewID       func() string
	Fingerprint bool // Compute record fingerprints
	KeepInvalid bool // Keep unscorable records in the report with an unknown severity
}

// AssessorOption is a function that configures an assessor.
type AssessorOption func(*AssessorConfig)

// DefaultAssessorConfig returns default assessor configuration.
func DefaultAssessorConfig() *AssessorConfig {
	return &AssessorConfig{
		Logger:      core.GetDefaultLogger(),
		Metrics:     metrics.GetDefaultCollector(),
		Clock:       time.Now,
		NewID:       func() string { return uuid.New().String() },
		Fingerprint: true,
	}
}

// ApplyAssessorOptions applies options to config.
func ApplyAssessorOptions(cfg *AssessorConfig, opts ...AssessorOption) {
	for _, opt := range opts {
		opt(cfg)
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l core.Logger) AssessorOption {
	return func(c *AssessorConfig) {
		if l == nil {
			l = &core.NopLogger{}
		}
		c.Logger = l
	}
}

// WithMetrics sets the metrics collector. A nil collector discards metrics.
func WithMetrics(m metrics.Collector) AssessorOption {
	return func(c *AssessorConfig) {
		if m == nil {
			m = metrics.NopCollector{}
		}
		c.Metrics = m
	}
}

// WithClock sets the time source used for report timestamps and durations.
func WithClock(now func() time.Time) AssessorOption {
	return func(c *AssessorConfig) {
		c.Clock = now
	}
}

// WithIDGenerator sets the generator for record and report IDs.
func WithIDGenerator(f func() string) AssessorOption {
	return func(c *AssessorConfig) {
		c.NewID = f
	}
}

// WithFingerprint enables or disables fingerprint computation.
func WithFingerprint(enabled bool) AssessorOption {
	return func(c *AssessorConfig) {
		c.Fingerprint = enabled
	}
}

// WithKeepInvalid keeps records that fail scoring in the report.
func WithKeepInvalid(keep bool) AssessorOption {
	return func(c *AssessorConfig) {
		c.KeepInvalid = keep
	}
}

// =============================================================================
// Codec Options
// =============================================================================

// CodecConfig holds report file encoding configuration.
type CodecConfig struct {
	Format      string // json or yaml; empty means detect from the file name
	Compression compress.Algorithm
	Indent      bool
}

// CodecOption is a function that configures the report codec.
type CodecOption func(*CodecConfig)

// DefaultCodecConfig returns default codec configuration.
func DefaultCodecConfig() *CodecConfig {
	return &CodecConfig{
		Indent: true,
	}
}

// ApplyCodecOptions applies options to config.
func ApplyCodecOptions(cfg *CodecConfig, opts ...CodecOption) {
	for _, opt := range opts {
		opt(cfg)
	}
}

// WithFormat forces the encoding format.
func WithFormat(format string) CodecOption {
	return func(c *CodecConfig) {
		c.Format = format
	}
}

// WithCompression forces the compression algorithm, overriding the file extension.
func WithCompression(a compress.Algorithm) CodecOption {
	return func(c *CodecConfig) {
		c.Compression = a
	}
}

// WithIndent toggles indented JSON output.
func WithIndent(indent bool) CodecOption {
	return func(c *CodecConfig) {
		c.Indent = indent
	}
}
