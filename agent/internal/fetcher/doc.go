// Package fetcher retrieves every page of GET /patients with two stacked
// retry layers.
//
// Fetcher.FetchPage issues the HTTP request for one page. Status 429, 500,
// 502 and 503 are retried after attempt × base (1s, 2s, 3s…) up to the
// policy's attempt ceiling; every other failure, including a 2xx body that
// does not decode, is terminal. Failures are returned as *FetchError with a
// Reason of ReasonExhausted or ReasonTerminal.
//
// Coordinator.FetchAll drives page 1, takes its pagination block as the
// authoritative snapshot, then walks pages 2..totalPages strictly in order.
// A page whose fetch comes back exhausted is re-attempted as a whole with the
// same escalating delay, up to the same attempt ceiling. A terminal failure,
// or exhaustion on the final phase, abandons the remaining pages. Records already fetched are always kept, and a
// mismatch between the snapshot's total and the records collected is logged
// as a warning rather than returned as an error.
package fetcher
