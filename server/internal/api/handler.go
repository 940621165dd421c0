package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vitalscore/vitalscore/pkg/risk"
	"github.com/vitalscore/vitalscore/pkg/types"
	"github.com/vitalscore/vitalscore/server/internal/config"
)

const (
	apiVersion     = "v1.0"
	maxSubmitBytes = 1 << 20
)

// Handler serves the mock health-data API from a fixed patient dataset.
type Handler struct {
	patients []types.Patient
	expected risk.Assessment
	page     config.PageConfig
	faults   *Faults
	mux      *http.ServeMux
	now      func() time.Time
}

// New creates a Handler over patients and registers all routes. faults may
// be nil.
func New(patients []types.Patient, page config.PageConfig, faults *Faults) *Handler {
	h := &Handler{
		patients: patients,
		expected: risk.Assess(patients),
		page:     page,
		faults:   faults,
		mux:      http.NewServeMux(),
		now:      time.Now,
	}

	h.mux.HandleFunc("/healthz", h.health)
	h.mux.HandleFunc("/patients", h.listPatients)
	h.mux.HandleFunc("/submit-assessment", h.submit)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Expected returns the assessment a perfect submission would contain.
func (h *Handler) Expected() risk.Assessment {
	return h.expected
}

// --- route handlers ---------------------------------------------------------

// health returns GET /healthz.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{Status: "ok", Patients: len(h.patients)})
}

// listPatients returns one page of the dataset for GET /patients?page=&limit=.
func (h *Handler) listPatients(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		jsonErr(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := queryInt(r, "limit", h.page.DefaultLimit)
	if err != nil || limit < 1 {
		jsonErr(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > h.page.MaxLimit {
		limit = h.page.MaxLimit
	}

	if status := h.faults.Next(); status != 0 {
		slog.Debug("api: injecting fault", "page", page, "status", status)
		jsonErr(w, status, http.StatusText(status))
		return
	}

	total := len(h.patients)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	end := start + limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	jsonResp(w, http.StatusOK, types.PageResponse{
		Data: h.patients[start:end],
		Pagination: &types.Pagination{
			Page:        page,
			Limit:       limit,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     page < totalPages,
			HasPrevious: page > 1,
		},
		Metadata: &types.Metadata{
			Timestamp: h.now().UTC().Format(time.RFC3339),
			Version:   apiVersion,
			RequestID: uuid.NewString(),
		},
	})
}

// submit grades POST /submit-assessment against the dataset.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var sub submission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSubmitBytes)).Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "submission too large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	for field, v := range map[string]*[]string{
		"high_risk_patients":  sub.HighRiskPatients,
		"fever_patients":      sub.FeverPatients,
		"data_quality_issues": sub.DataQualityIssues,
	} {
		if v == nil {
			jsonErr(w, http.StatusBadRequest, "missing field "+field)
			return
		}
	}

	res := grade(h.expected, sub)
	slog.Info("api: assessment graded",
		"score", res.Score,
		"max_score", res.MaxScore,
		"status", res.Status,
	)
	jsonResp(w, http.StatusOK, types.AssessmentResponse{
		Success: true,
		Message: "Assessment submitted successfully",
		Results: res,
	})
}

// --- helpers ----------------------------------------------------------------

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: http.StatusText(code), Message: msg})
}
