package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exploopio/cvss/pkg/assessment"
	"github.com/exploopio/cvss/pkg/compress"
	"github.com/exploopio/cvss/pkg/options"
)

type assessFlags struct {
	out         string
	format      string
	inputFormat string
	failOn      string
	minSeverity string
	tags        []string
	asset       string
	keepInvalid bool
	sort        bool
}

func newAssessCmd(a *app) *cobra.Command {
	f := &assessFlags{}

	cmd := &cobra.Command{
		Use:   "assess <input-file>",
		Short: "Score every record in a vulnerability file and produce a report",
		Long: `Reads a JSON or YAML list of vulnerability records (or a previous report),
scores each record from its CVSS vector or metrics, and writes a report.
Use "-" to read from stdin. Files ending in .zst or .gz are decompressed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAssess(cmd, args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.out, "out", "", "Output report path (default: stdout)")
	flags.StringVar(&f.format, "format", "", "Output format: text, json or yaml")
	flags.StringVar(&f.inputFormat, "input-format", "json", "Format of stdin input: json or yaml")
	flags.StringVar(&f.failOn, "fail-on", "", "Exit 2 if any record is at or above this severity")
	flags.StringVar(&f.minSeverity, "min-severity", "", "Drop records below this severity from the report")
	flags.StringSliceVar(&f.tags, "tag", nil, "Keep only records with one of these tags (may be repeated)")
	flags.StringVar(&f.asset, "asset", "", "Keep only records for this asset")
	flags.BoolVar(&f.keepInvalid, "keep-invalid", false, "Keep unscorable records with an unknown severity")
	flags.BoolVar(&f.sort, "sort", true, "Sort records by severity")

	return cmd
}

func (a *app) runAssess(cmd *cobra.Command, input string, f *assessFlags) error {
	if !cmd.Flags().Changed("fail-on") {
		f.failOn = a.cfg.Assess.FailOn
	}
	if !cmd.Flags().Changed("min-severity") {
		f.minSeverity = a.cfg.Assess.MinSeverity
	}
	if !cmd.Flags().Changed("tag") {
		f.tags = a.cfg.Assess.Tags
	}
	if !cmd.Flags().Changed("asset") {
		f.asset = a.cfg.Assess.Asset
	}
	if !cmd.Flags().Changed("keep-invalid") {
		f.keepInvalid = a.cfg.Assess.KeepInvalid
	}

	failOn, err := parseLevel("fail-on", f.failOn)
	if err != nil {
		return err
	}
	minSeverity, err := parseLevel("min-severity", f.minSeverity)
	if err != nil {
		return err
	}

	vulns, err := a.readInput(cmd, input, f.inputFormat)
	if err != nil {
		return err
	}
	a.logger.Info("loaded %d records from %s", len(vulns), input)

	assessor := a.newAssessor(
		options.WithKeepInvalid(f.keepInvalid),
		options.WithFingerprint(a.cfg.Assess.Fingerprint),
	)
	report, err := assessor.AssessAll(cmd.Context(), vulns)
	if err != nil {
		return err
	}
	for _, e := range report.Errors {
		a.logger.Warn("record %d (%s): %s", e.Index, e.Record, e.Message)
	}

	if minSeverity != "" || len(f.tags) > 0 || f.asset != "" {
		report = assessment.Filter{MinSeverity: minSeverity, Tags: f.tags, Asset: f.asset}.Apply(report)
	}
	if f.sort {
		assessment.SortBySeverity(report.Vulnerabilities)
	}

	if err := a.writeReport(report, f); err != nil {
		return err
	}

	if failOn != "" && report.MeetsThreshold(failOn) {
		return exitError(exitThreshold, "%d vulnerabilities at or above %s", report.Summary.AtLeast(failOn), failOn)
	}
	return nil
}

func (a *app) readInput(cmd *cobra.Command, input, inputFormat string) ([]assessment.Vulnerability, error) {
	if input != "-" {
		return assessment.LoadVulnerabilities(input)
	}
	format, err := assessment.ParseFormat(inputFormat)
	if err != nil {
		return nil, err
	}
	return assessment.ReadVulnerabilities(cmd.InOrStdin(), format)
}

func (a *app) writeReport(report *assessment.Report, f *assessFlags) error {
	format := a.outputFormat(f.format)

	if f.out != "" {
		var opts []options.CodecOption
		if algorithm, _ := compress.FromPath(f.out); algorithm == compress.AlgorithmNone {
			configured, err := compress.ParseAlgorithm(a.cfg.Output.Compression)
			if err != nil {
				return exitError(exitInvalid, "%v", err)
			}
			opts = append(opts, options.WithCompression(configured))
		}
		if err := assessment.SaveReport(f.out, report, opts...); err != nil {
			return err
		}
		a.logger.Info("report written to %s", f.out)
		if format != "text" {
			return nil
		}
		return renderSummary(a.stdout, report)
	}

	switch format {
	case "text":
		return renderTable(a.stdout, report)
	case "json", "yaml":
		return assessment.WriteReport(a.stdout, report, options.WithFormat(format))
	default:
		return exitError(exitInvalid, "unknown format: %s", format)
	}
}

func renderTable(w io.Writer, report *assessment.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "SEVERITY\tSCORE\tID\tCVE\tTITLE\n")
	for _, v := range report.Vulnerabilities {
		cve := v.CVEID
		if cve == "" {
			cve = "-"
		}
		fmt.Fprintf(tw, "%s\t%.1f\t%s\t%s\t%s\n",
			strings.ToUpper(v.Severity().String()),
			v.CVSS.Score,
			v.ID,
			cve,
			v.Title,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	return renderSummary(w, report)
}

func renderSummary(w io.Writer, report *assessment.Report) error {
	s := report.Summary
	_, err := fmt.Fprintf(w, "Total: %d  Critical: %d  High: %d  Medium: %d  Low: %d  None: %d  Unknown: %d  Errors: %d\n",
		s.Total, s.Critical, s.High, s.Medium, s.Low, s.None, s.Unknown, len(report.Errors))
	return err
}
