// Package runner executes one assessment run: fetch every patient page,
// score the records, submit the result, then export and announce it.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vitalscore/vitalscore/agent/internal/config"
	"github.com/vitalscore/vitalscore/agent/internal/fetcher"
	"github.com/vitalscore/vitalscore/agent/internal/notify"
	"github.com/vitalscore/vitalscore/agent/internal/report"
	"github.com/vitalscore/vitalscore/agent/internal/retry"
	"github.com/vitalscore/vitalscore/agent/internal/submitter"
	"github.com/vitalscore/vitalscore/agent/internal/transport"
	"github.com/vitalscore/vitalscore/pkg/risk"
)

// Outcome is how far a run got.
type Outcome string

const (
	// OutcomeComplete: every page arrived and the record count matches.
	OutcomeComplete Outcome = "complete"
	// OutcomePartial: some records arrived, but pages were abandoned or the
	// count disagrees with the pagination total.
	OutcomePartial Outcome = "partial"
	// OutcomeAborted: no records could be fetched.
	OutcomeAborted Outcome = "aborted"
)

// Outcomes lists every Outcome, in severity order.
var Outcomes = []Outcome{OutcomeComplete, OutcomePartial, OutcomeAborted}

// outcomeStyles is how each Outcome is shown in webhook messages.
var outcomeStyles = map[Outcome]notify.Style{
	OutcomeComplete: {Label: "[OK]", Color: "2EB67D"},
	OutcomePartial:  {Label: "[PARTIAL]", Color: "FFAB40"},
	OutcomeAborted:  {Label: "[FAILED]", Color: "FF4F6A"},
}

// notifyTimeout bounds webhook delivery, which runs even after ctx is cancelled.
const notifyTimeout = 10 * time.Second

// ErrNoPatients is returned when the fetch failed before any record arrived.
var ErrNoPatients = errors.New("no patients fetched")

// Options adjusts a single run.
type Options struct {
	// DryRun scores but does not submit.
	DryRun bool
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Outcome  Outcome

	State      *fetcher.RunState
	Assessment risk.Assessment
	Scores     []risk.Scored

	// Submitted is true when a submission was attempted.
	Submitted bool
	Ack       *submitter.Ack
	SubmitErr error
}

// SubmitOK reports whether a submission was attempted and accepted.
func (s *Summary) SubmitOK() bool {
	return s.Submitted && s.SubmitErr == nil
}

// Run performs one fetch → score → submit cycle, then writes the report
// file and posts webhook notifications. Report and notification failures
// are logged only.
//
// The returned Summary is always non-nil. err is non-nil when the run was
// aborted (wrapping ErrNoPatients and the fetch failure) or the submission
// failed.
func Run(ctx context.Context, cfg config.AgentConfig, opts Options) (*Summary, error) {
	sum := &Summary{RunID: uuid.NewString(), Started: time.Now()}
	err := run(ctx, cfg, opts, sum)
	sum.Duration = time.Since(sum.Started)

	log := slog.With("run_id", sum.RunID)
	if rerr := report.Write(cfg.Report.Path, sum.Report()); rerr != nil {
		log.Error("runner: report write failed", "path", cfg.Report.Path, "err", rerr)
	}
	if len(cfg.Notify.Webhooks) > 0 {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		notify.New(cfg.Notify.Webhooks, nil).Send(nctx, sum.Notification(err))
		cancel()
	}
	log.Info("runner: run finished", "outcome", sum.Outcome, "duration", sum.Duration)
	return sum, err
}

func run(ctx context.Context, cfg config.AgentConfig, opts Options, sum *Summary) error {
	log := slog.With("run_id", sum.RunID)
	sum.Outcome = OutcomeAborted

	if cfg.Auth.Key() == "" {
		log.Warn("runner: api key not set, requests will be unauthenticated", "key_env", cfg.Auth.KeyEnv)
	}

	client := transport.NewClient(cfg)
	policy := retry.Policy{MaxAttempts: cfg.MaxAttempts, Base: cfg.BackoffBase}

	f, err := fetcher.New(client, cfg.BaseURL, policy)
	if err != nil {
		return err
	}
	sub, err := submitter.New(client, cfg.BaseURL)
	if err != nil {
		return err
	}

	log.Info("runner: fetching patients",
		"base_url", cfg.BaseURL,
		"page_size", cfg.PageSize,
		"max_attempts", policy.Attempts(),
	)
	sum.State = fetcher.NewCoordinator(f, policy, cfg.PageDelay).FetchAll(ctx, cfg.PageSize)
	sum.Outcome = outcomeOf(sum.State)

	if sum.Outcome == OutcomeAborted {
		log.Error("runner: run aborted", "err", sum.State.Err)
		if sum.State.Err != nil {
			return fmt.Errorf("runner: %w: %w", ErrNoPatients, sum.State.Err)
		}
		return fmt.Errorf("runner: %w", ErrNoPatients)
	}

	sum.Assessment, sum.Scores = risk.AssessDetailed(sum.State.Patients)
	log.Info("runner: patients scored",
		"outcome", sum.Outcome,
		"patients", len(sum.State.Patients),
		"high_risk", len(sum.Assessment.HighRisk),
		"fever", len(sum.Assessment.Fever),
		"data_quality_issues", len(sum.Assessment.DataQualityIssues),
	)

	if opts.DryRun || !cfg.Submit {
		log.Info("runner: submission disabled, skipping", "dry_run", opts.DryRun)
		return nil
	}

	sum.Submitted = true
	sum.Ack, sum.SubmitErr = sub.Submit(ctx, sum.Assessment)
	if sum.SubmitErr != nil {
		log.Error("runner: submission failed", "err", sum.SubmitErr)
		return sum.SubmitErr
	}
	log.Info("runner: assessment submitted",
		"status", sum.Ack.Status,
		"success", sum.Ack.Success,
		"message", sum.Ack.Message,
	)
	return nil
}

// Report converts s into the exported metrics snapshot.
func (s *Summary) Report() report.Run {
	r := report.Run{
		Timestamp:         s.Started,
		Duration:          s.Duration,
		Outcome:           string(s.Outcome),
		HighRisk:          len(s.Assessment.HighRisk),
		Fever:             len(s.Assessment.Fever),
		DataQualityIssues: len(s.Assessment.DataQualityIssues),
		SubmitOK:          s.SubmitOK(),
	}
	for _, o := range Outcomes {
		r.Outcomes = append(r.Outcomes, string(o))
	}
	if st := s.State; st != nil {
		r.PatientsFetched = len(st.Patients)
		r.PagesFetched = st.PagesFetched
		r.FetchAttempts = st.Attempts
		r.PhaseRetries = st.PhaseRetries
		if n, ok := st.Expected(); ok {
			r.PatientsExpected = n
		}
	}
	return r
}

// Notification converts s into a webhook summary. err is the run's error.
func (s *Summary) Notification(err error) notify.Summary {
	n := notify.Summary{
		RunID:             s.RunID,
		Outcome:           string(s.Outcome),
		HighRisk:          len(s.Assessment.HighRisk),
		Fever:             len(s.Assessment.Fever),
		DataQualityIssues: len(s.Assessment.DataQualityIssues),
		Submitted:         s.Submitted,
		SubmitOK:          s.SubmitOK(),
		Style:             outcomeStyles[s.Outcome],
	}
	if st := s.State; st != nil {
		n.Patients = len(st.Patients)
		if total, ok := st.Expected(); ok {
			n.Expected = total
		}
	}
	if s.Ack != nil {
		n.Message = s.Ack.Message
	}
	if err != nil {
		n.Error = err.Error()
	}
	return n
}

// outcomeOf classifies a finished fetch.
func outcomeOf(st *fetcher.RunState) Outcome {
	switch {
	case !st.FirstPageDone || (len(st.Patients) == 0 && st.Err != nil):
		return OutcomeAborted
	case st.Err != nil:
		return OutcomePartial
	}
	if _, ok := st.Expected(); ok && !st.Reconciled() {
		return OutcomePartial
	}
	return OutcomeComplete
}
