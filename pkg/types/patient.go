package types

// Patient is one record returned by GET /patients.
type Patient struct {
	ID            string `json:"patient_id"`
	Name          string `json:"name"`
	Age           any    `json:"age"`
	Gender        string `json:"gender"`
	BloodPressure any    `json:"blood_pressure"`
	Temperature   any    `json:"temperature"`
	VisitDate     string `json:"visit_date"`
	Diagnosis     string `json:"diagnosis"`
	Medications   string `json:"medications"`
}

// Pagination is the paging block of a PageResponse.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// Metadata is the response metadata block of a PageResponse.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	RequestID string `json:"requestId"`
}

// PageResponse is the body of a successful GET /patients call.
// Pagination and Metadata are optional.
type PageResponse struct {
	Data       []Patient   `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Metadata   *Metadata   `json:"metadata,omitempty"`
}

// AssessmentRequest is the body of POST /submit-assessment.
type AssessmentRequest struct {
	HighRiskPatients  []string `json:"high_risk_patients"`
	FeverPatients     []string `json:"fever_patients"`
	DataQualityIssues []string `json:"data_quality_issues"`
}

// AssessmentResponse is the body returned by POST /submit-assessment.
// Results is kept raw; its shape is owned by the grading service.
type AssessmentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// ErrorResponse is the JSON error body used by the mock server.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
