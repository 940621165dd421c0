package api

import (
	"math"

	"github.com/vitalscore/vitalscore/pkg/risk"
)

// Set names used in GradeResult.Breakdown.
const (
	setHighRisk    = "high_risk"
	setFever       = "fever"
	setDataQuality = "data_quality"
)

// grade scores a submission against the expected assessment. Each set earns
// one point per correct ID and loses one per false positive, floored at 0.
// Duplicate submitted IDs count once.
func grade(expected risk.Assessment, sub submission) GradeResult {
	res := GradeResult{Breakdown: map[string]SetResult{
		setHighRisk:    gradeSet(expected.HighRisk, *sub.HighRiskPatients),
		setFever:       gradeSet(expected.Fever, *sub.FeverPatients),
		setDataQuality: gradeSet(expected.DataQualityIssues, *sub.DataQualityIssues),
	}}

	pass := true
	for _, s := range res.Breakdown {
		if pts := s.Correct - s.FalsePositives; pts > 0 {
			res.Score += pts
		}
		res.MaxScore += s.Expected
		pass = pass && s.exact()
	}

	switch {
	case res.MaxScore > 0:
		res.Percentage = math.Round(float64(res.Score)/float64(res.MaxScore)*1000) / 10
	case pass:
		res.Percentage = 100
	}
	res.Status = "FAIL"
	if pass {
		res.Status = "PASS"
	}
	return res
}

func gradeSet(expected, submitted []string) SetResult {
	want := make(map[string]bool, len(expected))
	for _, id := range expected {
		want[id] = true
	}
	seen := make(map[string]bool, len(submitted))

	r := SetResult{Expected: len(want)}
	for _, id := range submitted {
		if seen[id] {
			continue
		}
		seen[id] = true
		r.Submitted++
		if want[id] {
			r.Correct++
		} else {
			r.FalsePositives++
		}
	}
	r.Missed = r.Expected - r.Correct
	return r
}
