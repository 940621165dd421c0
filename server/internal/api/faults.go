package api

import (
	"math/rand"
	"net/http"
	"sync"
)

// faultStatuses are the transient failures the upstream API is known to return.
var faultStatuses = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
}

// Faults decides, request by request, whether to fail with a transient 5xx.
// Equal seeds give equal fault sequences. A nil *Faults never injects.
type Faults struct {
	mu   sync.Mutex
	r    *rand.Rand
	rate float64
}

// NewFaults returns a Faults that fails a request with probability rate.
func NewFaults(rate float64, seed int64) *Faults {
	return &Faults{r: rand.New(rand.NewSource(seed)), rate: rate}
}

// Next returns the status to fail the next request with, or 0 to serve it.
func (f *Faults) Next() int {
	if f == nil || f.rate <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.r.Float64() >= f.rate {
		return 0
	}
	return faultStatuses[f.r.Intn(len(faultStatuses))]
}
