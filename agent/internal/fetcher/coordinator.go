package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vitalscore/vitalscore/agent/internal/retry"
	"github.com/vitalscore/vitalscore/pkg/types"
)

// PageFetcher fetches a single page. *Fetcher implements it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, limit int) (*Page, error)
}

// RunState is everything one FetchAll call collected.
type RunState struct {
	// Patients holds every fetched record in page order.
	Patients []types.Patient

	// Pagination is page 1's pagination block, nil if page 1 never arrived
	// or carried none.
	Pagination *types.Pagination

	// FirstPageDone gates the fetching of pages 2..N.
	FirstPageDone bool

	// PagesFetched counts pages that were decoded successfully.
	PagesFetched int

	// Attempts counts HTTP requests across the run.
	Attempts int

	// PhaseRetries counts whole-page re-attempts made by the coordinator.
	PhaseRetries int

	// Err is the failure that stopped fetching early, nil when every page
	// arrived.
	Err error
}

// TotalPages returns the page count from the snapshot, or 1 when it is
// absent or zero.
func (s *RunState) TotalPages() int {
	if s.Pagination == nil || s.Pagination.TotalPages <= 0 {
		return 1
	}
	return s.Pagination.TotalPages
}

// Expected returns the snapshot's total record count and whether a snapshot exists.
func (s *RunState) Expected() (int, bool) {
	if s.Pagination == nil {
		return 0, false
	}
	return s.Pagination.Total, true
}

// Reconciled reports whether the collected record count matches the snapshot.
// Without a snapshot there is nothing to reconcile against and it returns false.
func (s *RunState) Reconciled() bool {
	total, ok := s.Expected()
	return ok && total == len(s.Patients)
}

// Complete reports whether every page arrived.
func (s *RunState) Complete() bool {
	return s.FirstPageDone && s.Err == nil
}

func (s *RunState) add(p *Page) {
	s.Patients = append(s.Patients, p.Data...)
	s.PagesFetched++
}

// Coordinator drives a sequential fetch of all pages.
type Coordinator struct {
	pages     PageFetcher
	policy    retry.Policy
	pageDelay time.Duration
	sleep     retry.SleepFunc // injectable for tests
}

// NewCoordinator returns a Coordinator that retries exhausted pages under
// policy and pauses pageDelay after each of pages 2..N-1.
func NewCoordinator(pages PageFetcher, policy retry.Policy, pageDelay time.Duration) *Coordinator {
	return &Coordinator{
		pages:     pages,
		policy:    policy,
		pageDelay: pageDelay,
		sleep:     retry.Sleep,
	}
}

// FetchAll fetches page 1 and then pages 2..totalPages. It never fails:
// whatever was collected is returned, with RunState.Err describing why
// fetching stopped early.
func (c *Coordinator) FetchAll(ctx context.Context, pageSize int) *RunState {
	st := &RunState{}

	first, err := c.fetch(ctx, st, 1, pageSize)
	if err != nil {
		st.Err = err
		slog.Error("fetcher: first page failed, no patients fetched", "err", err)
		return st
	}
	st.Pagination = first.Pagination
	st.FirstPageDone = true
	st.add(first)

	total := st.TotalPages()
	slog.Info("fetcher: first page fetched",
		"patients", len(first.Data),
		"total_pages", total,
	)

	for page := 2; page <= total; page++ {
		p, err := c.fetch(ctx, st, page, pageSize)
		if err != nil {
			st.Err = err
			slog.Error("fetcher: abandoning remaining pages",
				"page", page,
				"total_pages", total,
				"patients", len(st.Patients),
				"err", err,
			)
			break
		}
		st.add(p)
		slog.Debug("fetcher: page fetched", "page", page, "patients", len(p.Data))

		if page < total {
			if err := c.sleep(ctx, c.pageDelay); err != nil {
				st.Err = &FetchError{Page: page + 1, Reason: ReasonTerminal, Err: err}
				break
			}
		}
	}

	c.reconcile(st)
	return st
}

// fetch requests one page, re-attempting the whole fetch when it comes back
// exhausted.
func (c *Coordinator) fetch(ctx context.Context, st *RunState, page, limit int) (*Page, error) {
	for phase := 1; ; phase++ {
		p, err := c.pages.FetchPage(ctx, page, limit)
		if err == nil {
			st.Attempts += p.Attempts
			return p, nil
		}

		var fe *FetchError
		if !errors.As(err, &fe) {
			return nil, &FetchError{Page: page, Reason: ReasonTerminal, Err: err}
		}
		st.Attempts += fe.Attempts
		if fe.Reason != ReasonExhausted || c.policy.Last(phase) {
			return nil, err
		}

		wait := c.policy.Delay(phase)
		st.PhaseRetries++
		slog.Warn("fetcher: page retries exhausted, retrying page",
			"page", page,
			"phase", phase,
			"retry_in", wait,
		)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, &FetchError{Page: page, Reason: ReasonTerminal, Status: fe.Status, Err: err}
		}
	}
}

// reconcile warns when the record count disagrees with the snapshot.
func (c *Coordinator) reconcile(st *RunState) {
	total, ok := st.Expected()
	if !ok {
		slog.Warn("fetcher: no pagination snapshot, cannot reconcile record count",
			"patients", len(st.Patients))
		return
	}
	if total != len(st.Patients) {
		slog.Warn("fetcher: record count mismatch",
			"expected", total,
			"fetched", len(st.Patients),
			"pages_fetched", st.PagesFetched,
			"total_pages", st.TotalPages(),
		)
		return
	}
	slog.Info("fetcher: all records fetched", "patients", total)
}
