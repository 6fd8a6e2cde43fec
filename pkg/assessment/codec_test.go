package assessment

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exploopio/cvss/pkg/compress"
	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/metrics"
	"github.com/exploopio/cvss/pkg/options"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path        string
		format      Format
		compression compress.Algorithm
	}{
		{"report.json", FormatJSON, compress.AlgorithmNone},
		{"report.yaml", FormatYAML, compress.AlgorithmNone},
		{"report.YML", FormatYAML, compress.AlgorithmNone},
		{"report.json.zst", FormatJSON, compress.AlgorithmZSTD},
		{"report.yaml.gz", FormatYAML, compress.AlgorithmGzip},
		{"report", FormatJSON, compress.AlgorithmNone},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, algorithm := FormatFromPath(tt.path)
			if format != tt.format || algorithm != tt.compression {
				t.Errorf("FormatFromPath(%q) = (%v, %v), want (%v, %v)",
					tt.path, format, algorithm, tt.format, tt.compression)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("YAML"); err != nil || f != FormatYAML {
		t.Errorf("ParseFormat(YAML) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); !sdkerrors.IsInvalidInput(err) {
		t.Errorf("ParseFormat(xml) error = %v, want invalid input", err)
	}
}

func assessedReport(t *testing.T) *Report {
	t.Helper()
	a := newTestAssessor(metrics.NopCollector{})
	report, err := a.AssessAll(context.Background(), []Vulnerability{
		{Title: "Log4Shell", Asset: "app", CVEID: "CVE-2021-44228", Tags: []string{"rce"}, CVSS: CVSS{Vector: vectorCritical}},
		{Title: "Reflected XSS", Asset: "app", CVSS: CVSS{Vector: vectorMedium}},
	})
	if err != nil {
		t.Fatalf("AssessAll() error: %v", err)
	}
	return report
}

func TestSaveLoadReport(t *testing.T) {
	dir := t.TempDir()
	want := assessedReport(t)

	for _, name := range []string{"report.json", "report.yaml", "report.json.zst", "report.yml.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveReport(path, want); err != nil {
				t.Fatalf("SaveReport() error: %v", err)
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile() error: %v", err)
			}
			_, algorithm := FormatFromPath(name)
			if got := compress.Detect(raw); got != algorithm {
				t.Errorf("file compression = %v, want %v", got, algorithm)
			}

			got, err := LoadReport(path)
			if err != nil {
				t.Fatalf("LoadReport() error: %v", err)
			}
			if got.Metadata.ID != want.Metadata.ID || !got.Metadata.Timestamp.Equal(want.Metadata.Timestamp) {
				t.Errorf("Metadata = %+v, want %+v", got.Metadata, want.Metadata)
			}
			if got.Summary != want.Summary {
				t.Errorf("Summary = %+v, want %+v", got.Summary, want.Summary)
			}
			if len(got.Vulnerabilities) != 2 {
				t.Fatalf("got %d vulnerabilities, want 2", len(got.Vulnerabilities))
			}
			v := got.Vulnerabilities[0]
			if v.CVSS != want.Vulnerabilities[0].CVSS || v.Fingerprint != want.Vulnerabilities[0].Fingerprint {
				t.Errorf("record = %+v, want %+v", v, want.Vulnerabilities[0])
			}
		})
	}
}

func TestSaveReport_CompressionOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := SaveReport(path, assessedReport(t), options.WithCompression(compress.AlgorithmZSTD)); err != nil {
		t.Fatalf("SaveReport() error: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if compress.Detect(raw) != compress.AlgorithmZSTD {
		t.Error("file should be zstd compressed")
	}
	if _, err := LoadReport(path); err != nil {
		t.Errorf("LoadReport() should detect compression from content: %v", err)
	}
}

func TestLoadReport_NotFound(t *testing.T) {
	_, err := LoadReport(filepath.Join(t.TempDir(), "missing.json"))
	if !sdkerrors.IsNotFoundError(err) {
		t.Errorf("LoadReport() error = %v, want not found", err)
	}
}

func TestReadVulnerabilities(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
	}{
		{
			name:   "json list",
			format: FormatJSON,
			input:  `[{"title":"XSS","cvss":{"vector":"` + vectorMedium + `"}},{"title":"RCE","cvss":{"metrics":{"AV":"N","AC":"L","PR":"N","UI":"N","S":"U","C":"H","I":"H","A":"H"}}}]`,
		},
		{
			name:   "json report",
			format: FormatJSON,
			input:  `{"version":"1.0","vulnerabilities":[{"title":"XSS","cvss":{"vector":"` + vectorMedium + `"}},{"title":"RCE","cvss":{"vector":"` + vectorCritical + `"}}]}`,
		},
		{
			name:   "yaml list",
			format: FormatYAML,
			input: `- title: XSS
  cvss:
    vector: ` + vectorMedium + `
- title: RCE
  cvss:
    metrics: {AV: N, AC: L, PR: N, UI: N, S: U, C: H, I: H, A: H}
`,
		},
		{
			name:   "yaml report",
			format: FormatYAML,
			input: `version: "1.0"
vulnerabilities:
  - title: XSS
    cvss:
      vector: ` + vectorMedium + `
  - title: RCE
    cvss:
      vector: ` + vectorCritical + `
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vulns, err := ReadVulnerabilities(strings.NewReader(tt.input), tt.format)
			if err != nil {
				t.Fatalf("ReadVulnerabilities() error: %v", err)
			}
			if len(vulns) != 2 {
				t.Fatalf("got %d records, want 2", len(vulns))
			}

			report, err := newTestAssessor(metrics.NopCollector{}).AssessAll(context.Background(), vulns)
			if err != nil {
				t.Fatalf("AssessAll() error: %v", err)
			}
			if report.HasErrors() {
				t.Fatalf("unexpected errors: %+v", report.Errors)
			}
			if report.Summary.Critical != 1 || report.Summary.Medium != 1 {
				t.Errorf("Summary = %+v, want one critical and one medium", report.Summary)
			}
		})
	}
}

func TestReadVulnerabilities_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		kind   sdkerrors.Kind
	}{
		{"broken json", FormatJSON, `[{"title":`, sdkerrors.KindInvalidInput},
		{"bad metric code", FormatJSON, `[{"title":"x","cvss":{"metrics":{"AV":"Q"}}}]`, sdkerrors.KindInvalidMetric},
		{"broken yaml", FormatYAML, "- title: [unclosed", sdkerrors.KindInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadVulnerabilities(strings.NewReader(tt.input), tt.format)
			if err == nil {
				t.Fatal("ReadVulnerabilities() should fail")
			}
			if got := sdkerrors.GetKind(err); got != tt.kind {
				t.Errorf("kind = %v, want %v (err: %v)", got, tt.kind, err)
			}
		})
	}
}

func TestLoadVulnerabilities_Compressed(t *testing.T) {
	data := []byte(`[{"title":"XSS","cvss":{"vector":"` + vectorMedium + `"}}]`)
	compressed, err := compress.DefaultGzip.Compress(data)
	if err != nil {
		t.Fatalf("Compress() error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "input.json.gz")
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	vulns, err := LoadVulnerabilities(path)
	if err != nil {
		t.Fatalf("LoadVulnerabilities() error: %v", err)
	}
	if len(vulns) != 1 || vulns[0].Title != "XSS" {
		t.Errorf("got %+v", vulns)
	}
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReport(&buf, assessedReport(t), options.WithFormat("yaml")); err != nil {
		t.Fatalf("WriteReport() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"vector: " + vectorCritical,
		"severity: " + string(severity.Critical),
		"cvss_version: \"3.1\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_KeepInvalidPartialMetrics(t *testing.T) {
	input := `[
  {"title": "Log4Shell", "cvss": {"vector": "` + vectorCritical + `"}},
  {"title": "Half filled", "cvss": {"metrics": {"AV": "N"}}}
]`
	vulns, err := ReadVulnerabilities(strings.NewReader(input), FormatJSON)
	if err != nil {
		t.Fatalf("ReadVulnerabilities() error: %v", err)
	}

	a := newTestAssessor(metrics.NopCollector{}, options.WithKeepInvalid(true))
	report, err := a.AssessAll(context.Background(), vulns)
	if err != nil {
		t.Fatalf("AssessAll() error: %v", err)
	}
	if len(report.Vulnerabilities) != 2 || len(report.Errors) != 1 {
		t.Fatalf("got %d records and %d errors, want 2 and 1", len(report.Vulnerabilities), len(report.Errors))
	}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteReport(&buf, report, options.WithFormat(string(format))); err != nil {
				t.Fatalf("WriteReport() error: %v", err)
			}

			var got Report
			if err := Decode(buf.Bytes(), format, &got); err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			kept := got.Vulnerabilities[1]
			if kept.Title != "Half filled" || kept.Severity() != severity.Unknown {
				t.Errorf("kept record = %+v, want unknown severity", kept)
			}
			if kept.CVSS.Metrics != nil || !strings.Contains(kept.Error, "missing or invalid metrics") {
				t.Errorf("kept record should drop invalid metrics and carry the error, got %+v", kept)
			}
			if got.Vulnerabilities[0].CVSS.Score != 9.8 {
				t.Errorf("scored record = %+v", got.Vulnerabilities[0])
			}
		})
	}
}
