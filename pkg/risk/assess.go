package risk

import "github.com/vitalscore/vitalscore/pkg/types"

// Assessment holds the three patient-ID sets submitted to the API.
// Each set lists an ID at most once, in the order the patient was first seen.
// The same patient may appear in more than one set.
type Assessment struct {
	HighRisk          []string `json:"high_risk_patients"`
	Fever             []string `json:"fever_patients"`
	DataQualityIssues []string `json:"data_quality_issues"`
}

// Request converts the assessment into the /submit-assessment body.
// Empty sets are sent as [] rather than null.
func (a Assessment) Request() types.AssessmentRequest {
	return types.AssessmentRequest{
		HighRiskPatients:  nonNil(a.HighRisk),
		FeverPatients:     nonNil(a.Fever),
		DataQualityIssues: nonNil(a.DataQualityIssues),
	}
}

// Scored pairs a patient ID with its classification.
type Scored struct {
	PatientID string `json:"patient_id"`
	Score     Score  `json:"score"`
}

// Assess classifies every patient and partitions the IDs into sets.
func Assess(patients []types.Patient) Assessment {
	a, _ := AssessDetailed(patients)
	return a
}

// AssessDetailed is Assess that also returns each patient's Score, in input
// order. Patients with an empty ID are scored but never placed in a set.
func AssessDetailed(patients []types.Patient) (Assessment, []Scored) {
	var (
		out    Assessment
		scores = make([]Scored, 0, len(patients))
		high   = newIDSet()
		fever  = newIDSet()
		dq     = newIDSet()
	)
	for _, p := range patients {
		s := Classify(p)
		scores = append(scores, Scored{PatientID: p.ID, Score: s})
		if p.ID == "" {
			continue
		}
		if s.HighRisk() {
			high.add(p.ID)
		}
		if s.Temperature.Valid && s.Fever {
			fever.add(p.ID)
		}
		if s.DataQualityIssue() {
			dq.add(p.ID)
		}
	}
	out.HighRisk = high.ids
	out.Fever = fever.ids
	out.DataQualityIssues = dq.ids
	return out, scores
}

// idSet is an insertion-ordered set of patient IDs.
type idSet struct {
	seen map[string]struct{}
	ids  []string
}

func newIDSet() *idSet {
	return &idSet{seen: make(map[string]struct{})}
}

func (s *idSet) add(id string) {
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.ids = append(s.ids, id)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
