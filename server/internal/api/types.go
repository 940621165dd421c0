package api

// SetResult grades one submitted ID set against the expected set.
type SetResult struct {
	Expected       int `json:"expected"`
	Submitted      int `json:"submitted"`
	Correct        int `json:"correct"`
	Missed         int `json:"missed"`
	FalsePositives int `json:"false_positives"`
}

// exact reports whether the set matched with nothing missed or extra.
func (s SetResult) exact() bool {
	return s.Missed == 0 && s.FalsePositives == 0
}

// GradeResult is the results block of a POST /submit-assessment response.
type GradeResult struct {
	Score      int                  `json:"score"`
	MaxScore   int                  `json:"max_score"`
	Percentage float64              `json:"percentage"`
	Status     string               `json:"status"` // PASS | FAIL
	Breakdown  map[string]SetResult `json:"breakdown"`
}

// HealthResponse is the payload for GET /healthz.
type HealthResponse struct {
	Status   string `json:"status"`
	Patients int    `json:"patients"`
}

// submission mirrors types.AssessmentRequest with pointers so that absent
// fields can be told apart from empty ones.
type submission struct {
	HighRiskPatients  *[]string `json:"high_risk_patients"`
	FeverPatients     *[]string `json:"fever_patients"`
	DataQualityIssues *[]string `json:"data_quality_issues"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
