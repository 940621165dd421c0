package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

const namespace = "vitalscore"

// Run is the snapshot of a finished run that gets exported.
type Run struct {
	Timestamp time.Time
	Duration  time.Duration

	// Outcome is the run's outcome label; Outcomes lists every label so the
	// ones not taken are exported as 0.
	Outcome  string
	Outcomes []string

	PatientsFetched  int
	PatientsExpected int
	PagesFetched     int
	FetchAttempts    int
	PhaseRetries     int

	HighRisk          int
	Fever             int
	DataQualityIssues int

	SubmitOK bool
}

// Write renders r and atomically replaces the file at path.
// An empty path disables the report.
func Write(path string, r Run) error {
	if path == "" {
		return nil
	}
	var buf bytes.Buffer
	for _, mf := range Families(r) {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return fmt.Errorf("report: encode %s: %w", mf.GetName(), err)
		}
	}
	return writeAtomic(path, buf.Bytes())
}

// Families returns r as metric families in a stable order.
func Families(r Run) []*dto.MetricFamily {
	outcomes := make([]*dto.Metric, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		outcomes = append(outcomes, metric(boolValue(o == r.Outcome), label("outcome", o)))
	}

	return []*dto.MetricFamily{
		family("run_timestamp_seconds", "Unix time the last run started.",
			metric(float64(r.Timestamp.UnixNano())/1e9)),
		family("run_duration_seconds", "Wall time of the last run.",
			metric(r.Duration.Seconds())),
		family("run_outcome", "1 for the outcome of the last run, 0 otherwise.", outcomes...),
		family("patients_fetched", "Patient records fetched in the last run.",
			metric(float64(r.PatientsFetched))),
		family("patients_expected", "Patient total reported by the API's first page.",
			metric(float64(r.PatientsExpected))),
		family("pages_fetched", "Pages fetched in the last run.",
			metric(float64(r.PagesFetched))),
		family("fetch_attempts", "HTTP requests made while fetching pages.",
			metric(float64(r.FetchAttempts))),
		family("fetch_phase_retries", "Whole-page re-attempts after exhausted retries.",
			metric(float64(r.PhaseRetries))),
		family("assessment_patients", "Patients in each assessment set.",
			metric(float64(r.HighRisk), label("set", "high_risk")),
			metric(float64(r.Fever), label("set", "fever")),
			metric(float64(r.DataQualityIssues), label("set", "data_quality_issues"))),
		family("submission_success", "1 if the last run's submission was accepted.",
			metric(boolValue(r.SubmitOK))),
	}
}

func family(name, help string, metrics ...*dto.Metric) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   proto.String(namespace + "_" + name),
		Help:   proto.String(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: metrics,
	}
}

func metric(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{
		Label: labels,
		Gauge: &dto.Gauge{Value: proto.Float64(v)},
	}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("report: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", name, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("report: chmod %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("report: rename to %s: %w", path, err)
	}
	return nil
}
