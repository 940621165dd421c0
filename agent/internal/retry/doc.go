// Package retry holds the backoff policy shared by both retry layers of the
// patient fetch: the per-request loop inside a page fetch and the per-phase
// loop in the pagination coordinator.
//
// The delay after failed attempt n is n × Base (1s, 2s, 3s… by default).
// Waiting goes through a SleepFunc so tests can record delays instead of
// sleeping.
package retry
