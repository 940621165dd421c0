package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vitalscore/vitalscore/agent/internal/retry"
)

const pageBody = `{
  "data": [
    {"patient_id": "DEMO001", "name": "TestPatient, John", "age": 45, "gender": "M",
     "blood_pressure": "120/80", "temperature": 98.6, "visit_date": "2024-01-15",
     "diagnosis": "Sample_Hypertension", "medications": "DemoMedA 10mg"},
    {"patient_id": "DEMO002", "name": "AssessmentUser, Jane", "age": "fifty", "gender": "F",
     "blood_pressure": null, "temperature": "TEMP_ERROR", "visit_date": "2024-01-16",
     "diagnosis": "Sample_Diabetes", "medications": "DemoMedB 500mg"}
  ],
  "pagination": {"page": 1, "limit": 2, "total": 4, "totalPages": 2, "hasNext": true, "hasPrevious": false},
  "metadata": {"timestamp": "2025-07-15T23:01:05.059Z", "version": "v1.0", "requestId": "123"}
}`

// newTestFetcher returns a Fetcher against srv whose sleeps are recorded
// instead of performed.
func newTestFetcher(t *testing.T, srv *httptest.Server, maxAttempts int) (*Fetcher, *[]time.Duration) {
	t.Helper()
	f, err := New(srv.Client(), srv.URL, retry.Policy{MaxAttempts: maxAttempts, Base: time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

// failThen responds with status for the first n requests, then serves pageBody.
func failThen(n int32, status int, hits *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(hits, 1) <= n {
			http.Error(w, `{"error":"try again"}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pageBody))
	}
}

func TestFetchPage_Success(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	f, slept := newTestFetcher(t, srv, 5)
	p, err := f.FetchPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if gotPath != "/patients" {
		t.Errorf("path = %q, want /patients", gotPath)
	}
	if gotQuery != "limit=2&page=1" {
		t.Errorf("query = %q, want limit=2&page=1", gotQuery)
	}
	if p.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", p.Attempts)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v on first-try success", *slept)
	}
	if len(p.Data) != 2 {
		t.Fatalf("len(Data) = %d, want 2", len(p.Data))
	}
	if p.Data[0].ID != "DEMO001" || p.Data[0].Age != 45.0 {
		t.Errorf("Data[0] = %+v", p.Data[0])
	}
	if p.Data[1].BloodPressure != nil {
		t.Errorf("Data[1].BloodPressure = %v, want nil", p.Data[1].BloodPressure)
	}
	if p.Pagination == nil || p.Pagination.TotalPages != 2 || p.Pagination.Total != 4 {
		t.Errorf("Pagination = %+v", p.Pagination)
	}
	if p.Metadata == nil || p.Metadata.RequestID != "123" {
		t.Errorf("Metadata = %+v", p.Metadata)
	}
}

func TestFetchPage_BaseURLWithPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(pageBody))
	}))
	defer srv.Close()

	f, err := New(srv.Client(), srv.URL+"/api/", retry.DefaultPolicy())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := f.FetchPage(context.Background(), 1, 10); err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}
	if gotPath != "/api/patients" {
		t.Errorf("path = %q, want /api/patients", gotPath)
	}
}

func TestFetchPage_RetriesWithEscalatingBackoff(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(failThen(3, http.StatusTooManyRequests, &hits))
	defer srv.Close()

	f, slept := newTestFetcher(t, srv, 5)
	p, err := f.FetchPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
	if p.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", p.Attempts)
	}
	if n := atomic.LoadInt32(&hits); n != 4 {
		t.Errorf("server hits = %d, want 4", n)
	}
}

func TestFetchPage_Exhausted(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(failThen(100, http.StatusServiceUnavailable, &hits))
	defer srv.Close()

	f, slept := newTestFetcher(t, srv, 5)
	_, err := f.FetchPage(context.Background(), 3, 2)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FetchError", err)
	}
	if fe.Reason != ReasonExhausted {
		t.Errorf("Reason = %v, want exhausted", fe.Reason)
	}
	if fe.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d, want 503", fe.Status)
	}
	if fe.Page != 3 {
		t.Errorf("Page = %d, want 3", fe.Page)
	}
	if n := atomic.LoadInt32(&hits); n != 5 || fe.Attempts != 5 {
		t.Errorf("hits = %d, Attempts = %d, want 5 each", n, fe.Attempts)
	}
	// No wait after the final attempt.
	want := []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}
	if !reflect.DeepEqual(*slept, want) {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
}

func TestFetchPage_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantHits  int32
		wantRetry bool
	}{
		{http.StatusTooManyRequests, 2, true},
		{http.StatusInternalServerError, 2, true},
		{http.StatusBadGateway, 2, true},
		{http.StatusServiceUnavailable, 2, true},
		{http.StatusBadRequest, 1, false},
		{http.StatusUnauthorized, 1, false},
		{http.StatusNotFound, 1, false},
		{http.StatusNotImplemented, 1, false},
		{http.StatusGatewayTimeout, 1, false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(failThen(1, tc.status, &hits))
			defer srv.Close()

			f, slept := newTestFetcher(t, srv, 5)
			_, err := f.FetchPage(context.Background(), 1, 2)

			if n := atomic.LoadInt32(&hits); n != tc.wantHits {
				t.Errorf("hits = %d, want %d", n, tc.wantHits)
			}
			if tc.wantRetry {
				if err != nil {
					t.Errorf("err = %v, want recovery on second attempt", err)
				}
				if len(*slept) != 1 {
					t.Errorf("slept %v, want one wait", *slept)
				}
				return
			}
			var fe *FetchError
			if !errors.As(err, &fe) || fe.Reason != ReasonTerminal || fe.Status != tc.status {
				t.Errorf("err = %v, want terminal FetchError with status %d", err, tc.status)
			}
			if len(*slept) != 0 {
				t.Errorf("slept %v on terminal status", *slept)
			}
		})
	}
}

func TestFetchPage_MalformedPayloadIsTerminal(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		missingData bool
	}{
		{"truncated", `{"data": [ {"patient_id": `, false},
		{"empty object", `{}`, true},
		{"null", `null`, true},
		{"error body", `{"error":"x"}`, true},
		{"null data", `{"data": null, "pagination": {"page": 1, "total": 3}}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&hits, 1)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			f, slept := newTestFetcher(t, srv, 5)
			_, err := f.FetchPage(context.Background(), 1, 2)

			var fe *FetchError
			if !errors.As(err, &fe) || fe.Reason != ReasonTerminal {
				t.Fatalf("err = %v, want terminal FetchError", err)
			}
			if fe.Status != http.StatusOK {
				t.Errorf("Status = %d, want 200", fe.Status)
			}
			if got := errors.Is(err, ErrMissingData); got != tc.missingData {
				t.Errorf("errors.Is(err, ErrMissingData) = %v, want %v", got, tc.missingData)
			}
			if n := atomic.LoadInt32(&hits); n != 1 {
				t.Errorf("hits = %d, want 1", n)
			}
			if len(*slept) != 0 {
				t.Errorf("slept %v on malformed payload", *slept)
			}
		})
	}
}

func TestFetchPage_EmptyDataArrayIsAPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv, 5)
	p, err := f.FetchPage(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if p.Data == nil || len(p.Data) != 0 {
		t.Errorf("Data = %#v, want empty non-nil slice", p.Data)
	}
}

func TestFetchPage_ConnectFailureIsTerminal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	f, slept := newTestFetcher(t, srv, 5)
	srv.Close()

	_, err := f.FetchPage(context.Background(), 1, 2)

	var fe *FetchError
	if !errors.As(err, &fe) || fe.Reason != ReasonTerminal || fe.Status != 0 {
		t.Fatalf("err = %v, want terminal FetchError with no status", err)
	}
	if len(*slept) != 0 {
		t.Errorf("slept %v on connect failure", *slept)
	}
}

func TestFetchPage_CancelledDuringBackoff(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(failThen(100, http.StatusTooManyRequests, &hits))
	defer srv.Close()

	f, _ := newTestFetcher(t, srv, 5)
	f.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := f.FetchPage(context.Background(), 1, 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Reason != ReasonTerminal {
		t.Errorf("err = %v, want terminal FetchError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("hits = %d, want 1", n)
	}
}

func TestRetriable(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503} {
		if !Retriable(code) {
			t.Errorf("Retriable(%d) = false", code)
		}
	}
	for _, code := range []int{0, 200, 400, 401, 403, 404, 501, 504} {
		if Retriable(code) {
			t.Errorf("Retriable(%d) = true", code)
		}
	}
}
