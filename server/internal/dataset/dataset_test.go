package dataset

import (
	"reflect"
	"testing"

	"github.com/vitalscore/vitalscore/pkg/risk"
)

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(30, 7)
	b := Generate(30, 7)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same seed produced different datasets")
	}
	c := Generate(30, 8)
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced identical datasets")
	}
}

func TestGenerate_IDs(t *testing.T) {
	ps := Generate(12, 1)
	if len(ps) != 12 {
		t.Fatalf("len: got %d, want 12", len(ps))
	}
	if ps[0].ID != "DEMO001" || ps[11].ID != "DEMO012" {
		t.Errorf("ids: got %q..%q", ps[0].ID, ps[11].ID)
	}
	if got := Generate(0, 1); len(got) != 0 {
		t.Errorf("Generate(0): got %d patients", len(got))
	}
}

func TestGenerate_ContainsMalformedValues(t *testing.T) {
	// 200 patients × 3 fields at a 10% rate leaves no realistic chance of a
	// clean dataset.
	a := risk.Assess(Generate(200, 1))
	if len(a.DataQualityIssues) == 0 {
		t.Error("no data quality issues in 200 generated patients")
	}
	if len(a.HighRisk) == 0 || len(a.Fever) == 0 {
		t.Errorf("expected some high-risk and fever patients, got %d and %d", len(a.HighRisk), len(a.Fever))
	}
}
