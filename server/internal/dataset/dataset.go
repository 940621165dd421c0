// Package dataset generates the mock API's deterministic patient records,
// including the malformed values real feeds carry.
package dataset

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/vitalscore/vitalscore/pkg/types"
)

// malformedRate is the chance that any one vital field is unusable.
const malformedRate = 0.1

var (
	firstNames = []string{"Alice", "Brian", "Carla", "David", "Elena", "Frank", "Grace", "Hector", "Irene", "James", "Kira", "Luis"}
	lastNames  = []string{"Johnson", "Smith", "Nguyen", "Garcia", "Okafor", "Chen", "Miller", "Patel", "Rossi", "Kowalski"}
	diagnoses  = []string{"Hypertension", "Type 2 Diabetes", "Asthma", "Healthy", "Migraine", "COPD", "Influenza", "Hyperlipidemia"}
	medicines  = []string{"Lisinopril 10mg", "Metformin 500mg", "Albuterol inhaler", "Atorvastatin 20mg", "Ibuprofen 400mg", "None"}

	badBloodPressure = []any{nil, "", "INVALID", "N/A", "150/", "/90", "120-80"}
	badTemperature   = []any{nil, "", "TEMP_ERROR", "invalid"}
	badAge           = []any{nil, "", "unknown", "fifty-three"}
)

// visitEpoch anchors generated visit dates.
var visitEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Generate returns n patients. Equal seeds produce equal datasets.
func Generate(n int, seed int64) []types.Patient {
	r := rand.New(rand.NewSource(seed))
	out := make([]types.Patient, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.Patient{
			ID:            fmt.Sprintf("DEMO%03d", i),
			Name:          pick(r, firstNames) + " " + pick(r, lastNames),
			Age:           age(r),
			Gender:        pick(r, []string{"M", "F"}),
			BloodPressure: bloodPressure(r),
			Temperature:   temperature(r),
			VisitDate:     visitEpoch.AddDate(0, 0, r.Intn(300)).Format("2006-01-02"),
			Diagnosis:     pick(r, diagnoses),
			Medications:   pick(r, medicines),
		})
	}
	return out
}

func pick[T any](r *rand.Rand, from []T) T {
	return from[r.Intn(len(from))]
}

func malformed(r *rand.Rand) bool {
	return r.Float64() < malformedRate
}

func age(r *rand.Rand) any {
	if malformed(r) {
		return pick(r, badAge)
	}
	return 18 + r.Intn(75)
}

func bloodPressure(r *rand.Rand) any {
	if malformed(r) {
		return pick(r, badBloodPressure)
	}
	sys := 100 + r.Intn(70)
	dia := 60 + r.Intn(45)
	return fmt.Sprintf("%d/%d", sys, dia)
}

func temperature(r *rand.Rand) any {
	if malformed(r) {
		return pick(r, badTemperature)
	}
	// One decimal, 97.0–103.0 °F, skewed toward normal.
	t := 97.0 + math.Abs(r.NormFloat64())*1.8
	if t > 103 {
		t = 103
	}
	return math.Round(t*10) / 10
}
