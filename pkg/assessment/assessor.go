package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/exploopio/cvss/pkg/core"
	"github.com/exploopio/cvss/pkg/cvss"
	sdkerrors "github.com/exploopio/cvss/pkg/errors"
	"github.com/exploopio/cvss/pkg/metrics"
	"github.com/exploopio/cvss/pkg/options"
	"github.com/exploopio/cvss/pkg/shared/fingerprint"
	"github.com/exploopio/cvss/pkg/shared/severity"
)

// Assessor scores vulnerability records.
// It is safe for concurrent use.
type Assessor struct {
	logger      core.Logger
	metrics     metrics.Collector
	now         func() time.Time
	newID       func() string
	fingerprint bool
	keepInvalid bool
}

// NewAssessor creates an assessor with the given options.
func NewAssessor(opts ...options.AssessorOption) *Assessor {
	cfg := options.DefaultAssessorConfig()
	options.ApplyAssessorOptions(cfg, opts...)

	return &Assessor{
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		now:         cfg.Clock,
		newID:       cfg.NewID,
		fingerprint: cfg.Fingerprint,
		keepInvalid: cfg.KeepInvalid,
	}
}

// Assess scores a single record and returns it with the derived CVSS fields,
// ID and fingerprint filled in. The input is not modified.
func (a *Assessor) Assess(v Vulnerability) (Vulnerability, error) {
	const op = "assessment.Assess"

	var res cvss.Result
	var err error
	switch {
	case v.CVSS.Vector != "":
		res, err = a.ScoreVector(v.CVSS.Vector)
	case v.CVSS.Metrics != nil:
		res, err = a.Score(*v.CVSS.Metrics)
	default:
		err = sdkerrors.E(sdkerrors.KindInvalidInput, op, "no CVSS vector or metrics")
		a.countError(err)
	}
	if err != nil {
		return v, sdkerrors.E(op, err, fmt.Sprintf("record %q", v.label()))
	}

	if v.Tags != nil {
		v.Tags = append([]string(nil), v.Tags...)
	}
	v.CVSS = CVSS{
		Version:             cvss.Version,
		Vector:              res.Vector,
		Metrics:             v.CVSS.Metrics,
		Score:               res.Score,
		ImpactScore:         res.ImpactScore,
		ExploitabilityScore: res.ExploitabilityScore,
		Severity:            res.Severity,
	}
	v.Error = ""
	if v.ID == "" {
		v.ID = a.newID()
	}
	if a.fingerprint {
		v.Fingerprint = fingerprint.GenerateAuto(fingerprint.Input{
			Asset:  v.Asset,
			CVEID:  v.CVEID,
			Title:  v.Title,
			Vector: res.Vector,
		})
	}

	return v, nil
}

// ScoreVector parses a vector string and scores it.
func (a *Assessor) ScoreVector(vector string) (cvss.Result, error) {
	m, err := cvss.ParseVector(vector)
	if err != nil {
		a.metrics.CounterInc(metrics.VectorParseFailures.Name, "reason", cvss.ParseFailureReason(vector))
		a.countError(err)
		return cvss.Result{}, err
	}
	return a.Score(m)
}

// Score scores a metric set and records the result.
func (a *Assessor) Score(m cvss.Metrics) (cvss.Result, error) {
	res, err := cvss.Assess(m)
	if err != nil {
		a.countError(err)
		return cvss.Result{}, err
	}

	a.metrics.CounterInc(metrics.ScoresTotal.Name, "severity", res.Severity.String())
	a.metrics.HistogramObserve(metrics.ScoreValue.Name, res.Score)
	a.logger.Debug("scored %s -> %.1f (%s)", res.Vector, res.Score, res.Severity)

	return res, nil
}

func (a *Assessor) countError(err error) {
	a.metrics.CounterInc(metrics.ScoreErrorsTotal.Name, "kind", sdkerrors.GetKind(err).String())
}

// AssessAll scores every record and builds a report. Records that fail are
// listed in Report.Errors and do not stop the batch. The context is checked
// between records; on cancellation the partial report is returned together
// with a canceled error.
func (a *Assessor) AssessAll(ctx context.Context, vulns []Vulnerability) (*Report, error) {
	const op = "assessment.AssessAll"

	start := a.now()
	timer := metrics.NewTimer(a.metrics, metrics.AssessmentDuration.Name)
	defer timer.ObserveDuration()

	report := NewReport(a.newID(), start)
	a.logger.Info("assessing %d records", len(vulns))

	for i, v := range vulns {
		if err := ctx.Err(); err != nil {
			a.finish(report, start)
			a.logger.Warn("assessment canceled after %d of %d records", i, len(vulns))
			return report, sdkerrors.E(sdkerrors.KindCanceled, op, err)
		}

		scored, err := a.Assess(v)
		if err != nil {
			a.metrics.CounterInc(metrics.AssessmentsTotal.Name, "status", "failed")
			a.logger.Warn("record %d: %v", i, err)
			report.Errors = append(report.Errors, RecordError{
				Index:   i,
				Record:  v.label(),
				Kind:    sdkerrors.GetKind(err).String(),
				Message: err.Error(),
			})
			if a.keepInvalid {
				if scored.ID == "" {
					scored.ID = a.newID()
				}
				// Invalid metric values cannot be encoded; the failure is kept in Error.
				if m := scored.CVSS.Metrics; m != nil && m.Validate() != nil {
					scored.CVSS.Metrics = nil
				}
				scored.CVSS.Severity = severity.Unknown
				scored.Error = err.Error()
				report.Add(scored)
			}
			continue
		}

		a.metrics.CounterInc(metrics.AssessmentsTotal.Name, "status", "scored")
		report.Add(scored)
	}

	a.finish(report, start)
	a.logger.Info("assessed %d records (%d failed), highest severity %s",
		len(vulns), len(report.Errors), report.Summary.HighestSeverity())

	return report, nil
}

func (a *Assessor) finish(report *Report, start time.Time) {
	report.Metadata.DurationMs = a.now().Sub(start).Milliseconds()
	for _, lvl := range severity.AllLevels() {
		a.metrics.GaugeSet(metrics.ReportVulnerabilities.Name, float64(report.Summary.Count(lvl)), "severity", lvl.String())
	}
}
