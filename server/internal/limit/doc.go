// Package limit rate-limits mock API clients with one token bucket
// (golang.org/x/time/rate) per API key, falling back to the remote IP.
//
// Buckets idle for longer than the TTL are evicted by Run.
package limit
