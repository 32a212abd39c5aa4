package types

type ScanQuality string

const (
	ScanQualityHigh   ScanQuality = "high"
	ScanQualityMedium ScanQuality = "medium"
	ScanQualityLow    ScanQuality = "low"
)

// DocumentCharacteristics are declared by the test author for reporting and
// triage. Validation never branches on them.
type DocumentCharacteristics struct {
	Scanned     bool        `json:"scanned"`
	ScanQuality ScanQuality `json:"scan_quality,omitempty"`
	PageCount   int         `json:"page_count,omitempty"`
	Issuer      string      `json:"issuer,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

type TestInput struct {
	DocumentLocation string                  `json:"document_location"`
	Characteristics  DocumentCharacteristics `json:"characteristics"`
}

type TestCase struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Input       TestInput          `json:"input"`
	Expected    ExpectedResult     `json:"expected"`
	Criteria    AcceptanceCriteria `json:"criteria"`
}

const (
	StatePending        = "pending"
	StateExtracting     = "extracting"
	StateValidating     = "validating"
	StateCompletedPass  = "completed_pass"
	StateCompletedFail  = "completed_fail"
	StateCompletedError = "completed_error"
)

type TestExecutionResult struct {
	TestCase           TestCase         `json:"test_case"`
	Passed             bool             `json:"passed"`
	FinalState         string           `json:"final_state"`
	CriteriaValidation ValidationResult `json:"criteria_validation"`
	ExpectedValidation ValidationResult `json:"expected_validation"`
	ExecutionTimeMs    int64            `json:"execution_time_ms"`
	RecordDigest       string           `json:"record_digest,omitempty"`
	Error              string           `json:"error,omitempty"`
}

type SuiteSummary struct {
	RunID                string                `json:"run_id"`
	SuiteName            string                `json:"suite_name,omitempty"`
	SuiteDigest          string                `json:"suite_digest,omitempty"`
	Total                int                   `json:"total"`
	Passed               int                   `json:"passed"`
	Failed               int                   `json:"failed"`
	Skipped              int                   `json:"skipped"`
	PassRate             float64               `json:"pass_rate"`
	TotalExecutionTimeMs int64                 `json:"total_execution_time_ms"`
	Results              []TestExecutionResult `json:"results"`
	Recommendations      []string              `json:"recommendations"`
}
