package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/exploopio/cvss/pkg/assessment"
	"github.com/exploopio/cvss/pkg/compress"
	"github.com/exploopio/cvss/pkg/cvss"
)

const (
	criticalVector = "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"
	mediumVector   = "CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv(configEnv, "")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

// --- score / vector / parse / severity ---

func TestScoreCmd(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{
			name:       "vector",
			args:       []string{"score", "--vector", criticalVector},
			wantStdout: "9.8 critical\n",
		},
		{
			name:       "metric flags",
			args:       []string{"score", "--av", "n", "--ac", "l", "--pr", "n", "--ui", "r", "--s", "c", "--c", "l", "--i", "l", "--a", "n"},
			wantStdout: "6.1 medium\n",
		},
		{
			name:       "zero impact",
			args:       []string{"score", "--vector", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:C/C:N/I:N/A:N"},
			wantStdout: "0.0 none\n",
		},
		{
			name:       "both inputs",
			args:       []string{"score", "--vector", criticalVector, "--av", "N"},
			wantCode:   exitInvalid,
			wantStderr: "not both",
		},
		{
			name:       "malformed vector",
			args:       []string{"score", "--vector", "AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"},
			wantCode:   exitInvalid,
			wantStderr: "must start with CVSS:3.1",
		},
		{
			name:       "missing metrics",
			args:       []string{"score", "--av", "N", "--ac", "L"},
			wantCode:   exitInvalid,
			wantStderr: "missing or invalid metrics: PR, UI, S, C, I, A",
		},
		{
			name:       "unknown format",
			args:       []string{"score", "--vector", criticalVector, "--format", "xml"},
			wantCode:   exitInvalid,
			wantStderr: "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "", tt.args...)
			if res.code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", res.code, tt.wantCode, res.stderr)
			}
			if tt.wantStdout != "" && res.stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", res.stdout, tt.wantStdout)
			}
			if tt.wantStderr != "" && !strings.Contains(res.stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want it to contain %q", res.stderr, tt.wantStderr)
			}
		})
	}
}

func TestScoreCmd_JSON(t *testing.T) {
	res := runCLI(t, "", "score", "--vector", mediumVector, "--format", "json")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	var got cvss.Result
	if err := json.Unmarshal([]byte(res.stdout), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, res.stdout)
	}
	if got.Vector != mediumVector || got.Score != 6.1 || got.ImpactScore != 2.8 || got.ExploitabilityScore != 2.9 {
		t.Errorf("result = %+v", got)
	}
}

func TestVectorCmd(t *testing.T) {
	res := runCLI(t, "", "vector", "--av", "L", "--ac", "L", "--pr", "L", "--ui", "N", "--s", "U", "--c", "H", "--i", "H", "--a", "H")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}
	if want := "CVSS:3.1/AV:L/AC:L/PR:L/UI:N/S:U/C:H/I:H/A:H\n"; res.stdout != want {
		t.Errorf("stdout = %q, want %q", res.stdout, want)
	}

	res = runCLI(t, "", "vector", "--av", "X")
	if res.code != exitInvalid {
		t.Errorf("invalid metrics exit code = %d, want %d", res.code, exitInvalid)
	}
}

func TestParseCmd(t *testing.T) {
	res := runCLI(t, "", "parse", mediumVector)
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}
	for _, want := range []string{"AV  N  Network", "UI  R  Required", "S   C  Changed", "A   N  None"} {
		if !strings.Contains(res.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, res.stdout)
		}
	}

	res = runCLI(t, "", "parse", mediumVector, "--format", "json")
	var m cvss.Metrics
	if err := json.Unmarshal([]byte(res.stdout), &m); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, res.stdout)
	}
	if m.Vector() != mediumVector {
		t.Errorf("round trip = %q, want %q", m.Vector(), mediumVector)
	}

	res = runCLI(t, "", "parse", "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	if res.code != exitInvalid || !strings.Contains(res.stderr, "unsupported CVSS version 3.0") {
		t.Errorf("old version: code = %d, stderr = %q", res.code, res.stderr)
	}
}

func TestSeverityCmd(t *testing.T) {
	tests := []struct {
		score    string
		want     string
		wantCode int
	}{
		{"0", "none", exitOK},
		{"0.1", "low", exitOK},
		{"3.9", "low", exitOK},
		{"4.0", "medium", exitOK},
		{"6.9", "medium", exitOK},
		{"7", "high", exitOK},
		{"8.9", "high", exitOK},
		{"9.0", "critical", exitOK},
		{"10", "critical", exitOK},
		{"10.1", "", exitInvalid},
		{"-1", "", exitInvalid},
		{"high", "", exitInvalid},
		{"NaN", "", exitInvalid},
		{"+Inf", "", exitInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			res := runCLI(t, "", "severity", "--", tt.score)
			if res.code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr: %s)", res.code, tt.wantCode, res.stderr)
			}
			if tt.want != "" && strings.TrimSpace(res.stdout) != tt.want {
				t.Errorf("stdout = %q, want %q", res.stdout, tt.want)
			}
		})
	}
}

// --- assess ---

const findingsYAML = `- title: Log4Shell
  asset: app.example.com
  cve_id: CVE-2021-44228
  tags: [rce]
  cvss:
    vector: CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H
- title: Reflected XSS
  asset: app.example.com
  tags: [web]
  cvss:
    vector: CVSS:3.1/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N
- title: Debug banner
  cvss:
    metrics: {AV: N, AC: L, PR: N, UI: N, S: U, C: N, I: N, A: N}
- title: Broken record
  cvss:
    vector: CVSS:3.1/AV:N
`

func TestAssessCmd_Table(t *testing.T) {
	input := writeFile(t, t.TempDir(), "findings.yaml", findingsYAML)

	res := runCLI(t, "", "assess", input)
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	if len(lines) < 4 || !strings.HasPrefix(lines[1], "CRITICAL") || !strings.HasPrefix(lines[2], "MEDIUM") {
		t.Errorf("table should be sorted by severity:\n%s", res.stdout)
	}
	if !strings.Contains(res.stdout, "Total: 3  Critical: 1  High: 0  Medium: 1  Low: 0  None: 1  Unknown: 0  Errors: 1") {
		t.Errorf("missing summary line:\n%s", res.stdout)
	}
	if !strings.Contains(res.stderr, "Broken record") {
		t.Errorf("failed record should be logged as a warning, stderr: %q", res.stderr)
	}
}

func TestAssessCmd_OutFileAndFailOn(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "findings.yaml", findingsYAML)
	out := filepath.Join(dir, "report.json.zst")

	res := runCLI(t, "", "assess", input, "--out", out, "--fail-on", "high")
	if res.code != exitThreshold {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", res.code, exitThreshold, res.stderr)
	}
	if !strings.Contains(res.stderr, "1 vulnerabilities at or above high") {
		t.Errorf("stderr = %q", res.stderr)
	}

	raw, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if compress.Detect(raw) != compress.AlgorithmZSTD {
		t.Error("report should be zstd compressed")
	}

	report, err := assessment.LoadReport(out)
	if err != nil {
		t.Fatalf("LoadReport() error: %v", err)
	}
	if report.Summary.Total != 3 || len(report.Errors) != 1 {
		t.Errorf("Summary = %+v, errors = %d", report.Summary, len(report.Errors))
	}
	if report.Vulnerabilities[0].CVEID != "CVE-2021-44228" || report.Vulnerabilities[0].Fingerprint == "" {
		t.Errorf("first record = %+v", report.Vulnerabilities[0])
	}
}

func TestAssessCmd_FailOnNotMet(t *testing.T) {
	input := writeFile(t, t.TempDir(), "findings.json",
		`[{"title":"XSS","cvss":{"vector":"`+mediumVector+`"}}]`)

	res := runCLI(t, "", "assess", input, "--fail-on", "critical", "--format", "json")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	var report assessment.Report
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v", err)
	}
	if report.Summary.Medium != 1 {
		t.Errorf("Summary = %+v", report.Summary)
	}
}

func TestAssessCmd_StdinAndFilters(t *testing.T) {
	res := runCLI(t, findingsYAML, "assess", "-", "--input-format", "yaml", "--format", "yaml", "--tag", "web")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, "title: Reflected XSS") || strings.Contains(res.stdout, "title: Log4Shell") {
		t.Errorf("tag filter not applied:\n%s", res.stdout)
	}

	res = runCLI(t, findingsYAML, "assess", "-", "--input-format", "yaml", "--format", "json", "--min-severity", "medium")
	var report assessment.Report
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v", err)
	}
	if report.Summary.Total != 2 || report.Summary.None != 0 {
		t.Errorf("Summary = %+v, want critical and medium only", report.Summary)
	}
}

func TestAssessCmd_AssetFilter(t *testing.T) {
	res := runCLI(t, findingsYAML, "assess", "-", "--input-format", "yaml", "--format", "json", "--asset", "app.example.com")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	var report assessment.Report
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v", err)
	}
	if report.Summary.Total != 2 {
		t.Fatalf("Summary = %+v, want the two app.example.com records", report.Summary)
	}
	for _, v := range report.Vulnerabilities {
		if v.Asset != "app.example.com" {
			t.Errorf("record %q has asset %q", v.Title, v.Asset)
		}
	}
}

func TestAssessCmd_KeepInvalid(t *testing.T) {
	input := `[{"title":"Half filled","cvss":{"metrics":{"AV":"N"}}}]`

	res := runCLI(t, input, "assess", "-", "--keep-invalid", "--format", "json")
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	var report assessment.Report
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, res.stdout)
	}
	if len(report.Vulnerabilities) != 1 || report.Summary.Unknown != 1 || report.Vulnerabilities[0].Error == "" {
		t.Errorf("report = %+v, want one unknown record carrying its error", report)
	}
}

func TestAssessCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing file", []string{"assess", filepath.Join(dir, "missing.json")}, exitFailure},
		{"bad fail-on", []string{"assess", "-", "--fail-on", "severe"}, exitInvalid},
		{"bad input format", []string{"assess", "-", "--input-format", "toml"}, exitInvalid},
		{"no args", []string{"assess"}, exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runCLI(t, "[]", tt.args...)
			if res.code != tt.code {
				t.Errorf("exit code = %d, want %d (stderr: %s)", res.code, tt.code, res.stderr)
			}
		})
	}
}

// --- config and metrics ---

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "findings.yaml", findingsYAML)
	config := writeFile(t, dir, "cvss.yaml", `log_level: error
output:
  format: json
assess:
  fail_on: critical
  fingerprint: false
`)

	res := runCLI(t, "", "--config", config, "assess", input)
	if res.code != exitThreshold {
		t.Fatalf("exit code = %d, want %d (stderr: %s)", res.code, exitThreshold, res.stderr)
	}

	var report assessment.Report
	if err := json.Unmarshal([]byte(res.stdout), &report); err != nil {
		t.Fatalf("config output format not applied: %v\n%s", err, res.stdout)
	}
	if report.Vulnerabilities[0].Fingerprint != "" {
		t.Error("fingerprints should be disabled by config")
	}
	if strings.Contains(res.stderr, "[WARN]") {
		t.Errorf("log_level error should suppress warnings, stderr: %q", res.stderr)
	}

	// Flags override the file
	res = runCLI(t, "", "--config", config, "assess", input, "--fail-on", "", "--format", "text")
	if res.code != exitOK || !strings.Contains(res.stdout, "Total: 3") {
		t.Errorf("flag override failed: code = %d, stdout = %q", res.code, res.stdout)
	}
}

func TestConfigFile_FromEnv(t *testing.T) {
	config := writeFile(t, t.TempDir(), "cvss.yaml", "output:\n  format: json\n")

	var stdout, stderr bytes.Buffer
	t.Setenv(configEnv, config)
	code := run(context.Background(), []string{"score", "--vector", criticalVector}, strings.NewReader(""), &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", code, stderr.String())
	}
	if !strings.HasPrefix(strings.TrimSpace(stdout.String()), "{") {
		t.Errorf("config from env not applied, stdout = %q", stdout.String())
	}
}

func TestConfigFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "log_level: [\n"},
		{"bad level", "log_level: loud\n"},
		{"bad format", "output:\n  format: xml\n"},
		{"bad compression", "output:\n  format: text\n  compression: lz4\n"},
		{"bad fail_on", "assess:\n  fail_on: severe\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".yaml", tt.content)
			res := runCLI(t, "", "--config", config, "severity", "5")
			if res.code != exitInvalid {
				t.Errorf("exit code = %d, want %d (stderr: %s)", res.code, exitInvalid, res.stderr)
			}
		})
	}
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("CVSS_TEST_FAIL_ON", "high")
	path := writeFile(t, t.TempDir(), "cvss.yaml", "assess:\n  fail_on: ${CVSS_TEST_FAIL_ON}\n")

	cfg := defaultConfig()
	if err := loadConfig(path, &cfg); err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Assess.FailOn != "high" {
		t.Errorf("FailOn = %q, want high", cfg.Assess.FailOn)
	}
	if cfg.Output.Format != "text" || !cfg.Assess.Fingerprint {
		t.Error("defaults should survive a partial config file")
	}
}

func TestMetricsFile(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "cvss.prom")

	res := runCLI(t, "", "--metrics-file", metricsPath, "score", "--vector", criticalVector)
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if want := `cvss_scores_total{severity="critical"} 1`; !strings.Contains(string(data), want) {
		t.Errorf("metrics file missing %q:\n%s", want, data)
	}

	// Failures are still counted when the command exits non-zero
	res = runCLI(t, "", "--metrics-file", metricsPath, "score", "--vector", "CVSS:2.0/AV:N")
	if res.code != exitInvalid {
		t.Fatalf("exit code = %d, want %d", res.code, exitInvalid)
	}
	data, _ = os.ReadFile(metricsPath)
	if want := `cvss_vector_parse_failures_total{reason="unsupported_version"} 1`; !strings.Contains(string(data), want) {
		t.Errorf("metrics file missing %q:\n%s", want, data)
	}
}

func TestVerboseLogging(t *testing.T) {
	res := runCLI(t, "", "-v", "score", "--vector", criticalVector)
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}
	if !strings.Contains(res.stderr, "[cvss] [DEBUG] scored "+criticalVector) {
		t.Errorf("verbose output missing debug line, stderr: %q", res.stderr)
	}
}

func TestMetricsFile_RuntimeFromConfig(t *testing.T) {
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "cvss.prom")
	config := writeFile(t, dir, "cvss.yaml", "metrics:\n  namespace: vulndash\n  runtime: true\n  file: "+metricsPath+"\n")

	res := runCLI(t, "", "--config", config, "score", "--vector", criticalVector)
	if res.code != exitOK {
		t.Fatalf("exit code = %d (stderr: %s)", res.code, res.stderr)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"go_goroutines", `vulndash_cvss_scores_total{severity="critical"} 1`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics file missing %q", want)
		}
	}
}
