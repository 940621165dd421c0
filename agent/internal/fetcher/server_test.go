package fetcher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/vitalscore/vitalscore/pkg/types"
)

// newPagedServer serves total patients over GET /patients. Each page listed
// in failOnce answers its first request with the mapped status.
func newPagedServer(t *testing.T, total, limit int, failOnce map[int]int) *httptest.Server {
	t.Helper()
	var (
		mu     sync.Mutex
		failed = make(map[int]bool)
	)
	totalPages := (total + limit - 1) / limit

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		mu.Lock()
		status, fail := failOnce[page]
		if fail && !failed[page] {
			failed[page] = true
			mu.Unlock()
			http.Error(w, `{"error":"injected"}`, status)
			return
		}
		mu.Unlock()

		var data []types.Patient
		for i := (page-1)*limit + 1; i <= page*limit && i <= total; i++ {
			data = append(data, types.Patient{ID: fmt.Sprintf("DEMO%03d", i), Age: 40.0})
		}
		resp := types.PageResponse{
			Data: data,
			Pagination: &types.Pagination{
				Page: page, Limit: limit, Total: total, TotalPages: totalPages,
				HasNext: page < totalPages, HasPrevious: page > 1,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}
