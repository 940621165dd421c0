// Package types defines the wire types shared by the agent and the mock
// server: the patient record, the paginated /patients response and the
// /submit-assessment request and response bodies.
//
// Fields the upstream API is known to send with inconsistent JSON types
// (age, temperature, blood_pressure) are decoded as `any` so that a single
// malformed record never fails the decoding of a whole page. pkg/risk
// interprets those values.
package types
