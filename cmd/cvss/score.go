package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/exploopio/cvss/pkg/assessment"
	"github.com/exploopio/cvss/pkg/cvss"
	"github.com/exploopio/cvss/pkg/options"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

// metricFlags holds the one-letter metric codes given on the command line.
type metricFlags struct {
	av, ac, pr, ui, s, c, i, a string
}

func (f *metricFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.av, "av", "", "Attack Vector: N, A, L or P")
	flags.StringVar(&f.ac, "ac", "", "Attack Complexity: L or H")
	flags.StringVar(&f.pr, "pr", "", "Privileges Required: N, L or H")
	flags.StringVar(&f.ui, "ui", "", "User Interaction: N or R")
	flags.StringVar(&f.s, "s", "", "Scope: U or C")
	flags.StringVar(&f.c, "c", "", "Confidentiality impact: N, L or H")
	flags.StringVar(&f.i, "i", "", "Integrity impact: N, L or H")
	flags.StringVar(&f.a, "a", "", "Availability impact: N, L or H")
}

func (f *metricFlags) any() bool {
	return f.av+f.ac+f.pr+f.ui+f.s+f.c+f.i+f.a != ""
}

// metrics converts the flags; unset or unknown codes stay invalid and are
// reported by validation.
func (f *metricFlags) metrics() cvss.Metrics {
	code := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	return cvss.Metrics{
		AttackVector:       cvss.ParseAttackVector(code(f.av)),
		AttackComplexity:   cvss.ParseAttackComplexity(code(f.ac)),
		PrivilegesRequired: cvss.ParsePrivilegesRequired(code(f.pr)),
		UserInteraction:    cvss.ParseUserInteraction(code(f.ui)),
		Scope:              cvss.ParseScope(code(f.s)),
		Confidentiality:    cvss.ParseImpact(code(f.c)),
		Integrity:          cvss.ParseImpact(code(f.i)),
		Availability:       cvss.ParseImpact(code(f.a)),
	}
}

func (a *app) newAssessor(opts ...options.AssessorOption) *assessment.Assessor {
	base := []options.AssessorOption{
		options.WithLogger(a.logger),
		options.WithMetrics(a.collector),
	}
	return assessment.NewAssessor(append(base, opts...)...)
}

// outputFormat returns the --format flag when set, else the configured format.
func (a *app) outputFormat(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Output.Format
}

// print writes v as JSON or YAML, or calls text for the text format.
func (a *app) print(format string, v any, text func(w io.Writer)) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Fprintln(a.stdout, string(data))
	case "yaml":
		enc := yaml.NewEncoder(a.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		return enc.Close()
	case "text":
		text(a.stdout)
	default:
		return exitError(exitInvalid, "unknown format: %s", format)
	}
	return nil
}

func newScoreCmd(a *app) *cobra.Command {
	var (
		mf     metricFlags
		vector string
		format string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the base score of a vector or metric set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vector != "" && mf.any() {
				return exitError(exitInvalid, "use either --vector or metric flags, not both")
			}

			assessor := a.newAssessor()
			var res cvss.Result
			var err error
			if vector != "" {
				res, err = assessor.ScoreVector(vector)
			} else {
				res, err = assessor.Score(mf.metrics())
			}
			if err != nil {
				return err
			}

			return a.print(a.outputFormat(format), res, func(w io.Writer) {
				fmt.Fprintf(w, "%.1f %s\n", res.Score, res.Severity)
			})
		},
	}

	mf.register(cmd)
	cmd.Flags().StringVar(&vector, "vector", "", "CVSS v3.1 vector string")
	cmd.Flags().StringVar(&format, "format", "", "Output format: text, json or yaml")

	return cmd
}

func newVectorCmd(a *app) *cobra.Command {
	var mf metricFlags

	cmd := &cobra.Command{
		Use:   "vector",
		Short: "Encode a metric set as a canonical vector string",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := mf.metrics()
			if err := m.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, cvss.ToVector(m))
			return nil
		},
	}

	mf.register(cmd)
	return cmd
}

// parsedMetric is one row of `cvss parse` output.
type parsedMetric struct {
	Metric string `json:"metric" yaml:"metric"`
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
}

func newParseCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "parse <vector>",
		Short: "Decode a vector string into its metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := cvss.ParseVector(args[0])
			if err != nil {
				return exitError(exitInvalid, "%v", err)
			}

			rows := []parsedMetric{
				{"AV", m.AttackVector.String(), m.AttackVector.Name()},
				{"AC", m.AttackComplexity.String(), m.AttackComplexity.Name()},
				{"PR", m.PrivilegesRequired.String(), m.PrivilegesRequired.Name()},
				{"UI", m.UserInteraction.String(), m.UserInteraction.Name()},
				{"S", m.Scope.String(), m.Scope.Name()},
				{"C", m.Confidentiality.String(), m.Confidentiality.Name()},
				{"I", m.Integrity.String(), m.Integrity.Name()},
				{"A", m.Availability.String(), m.Availability.Name()},
			}

			f := a.outputFormat(format)
			var out any = m
			if f == "text" {
				out = rows
			}
			return a.print(f, out, func(w io.Writer) {
				for _, r := range rows {
					fmt.Fprintf(w, "%-2s  %s  %s\n", r.Metric, r.Code, r.Name)
				}
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Output format: text, json or yaml")
	return cmd
}

func newSeverityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "severity <score>",
		Short: "Map a base score to its severity band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			score, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(score) || score < 0 || score > 10 {
				return exitError(exitInvalid, "score must be a number between 0.0 and 10.0, got %q", args[0])
			}
			level := cvss.SeverityOf(score)
			a.logger.Debug("score %.1f is in band %s", score, level)
			fmt.Fprintln(a.stdout, level)
			return nil
		},
	}
	return cmd
}

// parseLevel converts a --fail-on or --min-severity value.
func parseLevel(flag, value string) (severity.Level, error) {
	if value == "" {
		return "", nil
	}
	level := severity.FromString(value)
	if level == severity.Unknown {
		return "", exitError(exitInvalid, "--%s: unknown severity %q", flag, value)
	}
	return level, nil
}
