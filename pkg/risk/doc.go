// Package risk classifies patient records into risk sub-scores and builds
// the three identifier sets submitted to /submit-assessment.
//
// score.go holds the pure per-field scorers:
//
//	blood pressure  4 | 3 | 2 | 1, first matching stage wins
//	temperature     2 (>= 101.0) | 1 (99.6–100.9) | 0 (<= 99.5)
//	age             2 (> 65) | 1 (any other number)
//
// Each scorer reports whether the field was usable. An unusable field scores
// 0 and marks the patient as a data-quality issue; it never contributes to
// the total. assess.go combines the sub-scores (high risk at a total of 4 or
// more) and partitions patient IDs into the HighRisk, Fever and
// DataQualityIssues sets.
//
// Nothing in this package keeps state, so scoring the same record twice
// always yields the same Score.
package risk
