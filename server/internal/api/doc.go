// Package api implements the mock health-data API.
//
// New(patients, page, faults) returns an http.Handler that serves:
//
//	GET  /healthz            liveness and dataset size
//	GET  /patients           one page of patients with pagination and metadata
//	POST /submit-assessment  grades the three ID sets against the dataset
//
// /patients may answer 500, 502 or 503 at the configured fault rate.
// Authentication and rate limiting are applied by the caller.
//
// All endpoints respond with Content-Type: application/json and return 405
// for the wrong method. No external HTTP framework is used.
package api
