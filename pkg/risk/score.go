package risk

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/vitalscore/vitalscore/pkg/types"
)

// HighRiskThreshold is the minimum total score that marks a patient high risk.
const HighRiskThreshold = 4

// Temperature bands in °F.
const (
	tempHighFever = 101.0
	tempLowFever  = 99.6
	tempLowMax    = 100.9
	tempNormalMax = 99.5
)

// Age above which a patient scores the higher age band.
const ageSenior = 65

// SubScore is the contribution of a single field to the total score.
// Points is always 0 when Valid is false.
type SubScore struct {
	Points int  `json:"points"`
	Valid  bool `json:"valid"`
}

// Score is the full classification of one patient.
type Score struct {
	BloodPressure SubScore `json:"blood_pressure"`
	Temperature   SubScore `json:"temperature"`
	Age           SubScore `json:"age"`

	// Fever is only ever true when Temperature is valid.
	Fever bool `json:"fever"`

	// Total is the sum of the valid sub-scores.
	Total int `json:"total"`
}

// HighRisk reports whether the total score reaches HighRiskThreshold.
func (s Score) HighRisk() bool {
	return s.Total >= HighRiskThreshold
}

// DataQualityIssue reports whether any of the three fields was unusable.
func (s Score) DataQualityIssue() bool {
	return !s.BloodPressure.Valid || !s.Temperature.Valid || !s.Age.Valid
}

// Classify scores every field of p and derives the total.
func Classify(p types.Patient) Score {
	s := Score{
		BloodPressure: ScoreBloodPressure(p.BloodPressure),
		Age:           ScoreAge(p.Age),
	}
	s.Temperature, s.Fever = ScoreTemperature(p.Temperature)
	s.Total = s.BloodPressure.Points + s.Temperature.Points + s.Age.Points
	return s
}

// ScoreBloodPressure scores a "SYS/DIA" reading.
//
// The stages are checked in order and the first match wins, so 145/70 scores
// 4 on the systolic value alone. A well-formed reading that matches no stage
// (e.g. 139.5/70) is reported invalid.
func ScoreBloodPressure(v any) SubScore {
	raw, ok := v.(string)
	if !ok {
		return SubScore{}
	}
	parts := strings.Split(raw, "/")
	if len(parts) != 2 {
		return SubScore{}
	}
	sys, ok := parseNumber(parts[0])
	if !ok {
		return SubScore{}
	}
	dia, ok := parseNumber(parts[1])
	if !ok {
		return SubScore{}
	}

	switch {
	case sys >= 140 || dia >= 90:
		return SubScore{Points: 4, Valid: true}
	case (sys >= 130 && sys <= 139) || (dia >= 80 && dia <= 89):
		return SubScore{Points: 3, Valid: true}
	case sys >= 120 && sys <= 129 && dia < 80:
		return SubScore{Points: 2, Valid: true}
	case sys < 120 && dia < 80:
		return SubScore{Points: 1, Valid: true}
	default:
		return SubScore{}
	}
}

// ScoreTemperature scores a body temperature and reports whether it is a
// fever. Readings that fall between the bands (above 99.5 but below 99.6,
// above 100.9 but below 101.0) are invalid rather than rounded.
func ScoreTemperature(v any) (SubScore, bool) {
	t, ok := numeric(v)
	if !ok {
		return SubScore{}, false
	}
	switch {
	case t >= tempHighFever:
		return SubScore{Points: 2, Valid: true}, true
	case t >= tempLowFever && t <= tempLowMax:
		return SubScore{Points: 1, Valid: true}, true
	case t <= tempNormalMax:
		return SubScore{Points: 0, Valid: true}, false
	default:
		return SubScore{}, false
	}
}

// ScoreAge scores an age in years. There is no lower bound: zero and
// negative ages score 1 like any other age up to 65.
func ScoreAge(v any) SubScore {
	age, ok := numeric(v)
	if !ok {
		return SubScore{}
	}
	if age > ageSenior {
		return SubScore{Points: 2, Valid: true}
	}
	return SubScore{Points: 1, Valid: true}
}

// numeric coerces a decoded JSON value to a finite float64.
// Numeric strings are accepted; null, booleans and anything else are not.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, finite(n)
	case float32:
		return float64(n), finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		return parseNumber(string(n))
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// parseNumber parses s as a finite float after trimming whitespace.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
