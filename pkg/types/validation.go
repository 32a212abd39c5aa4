package types

const (
	CodeBalanceMismatch            = "BALANCE_MISMATCH"
	CodeInvalidDateRange           = "INVALID_DATE_RANGE"
	CodeStatementTooOld            = "STATEMENT_TOO_OLD"
	CodeTransactionsOutsidePeriod  = "TRANSACTIONS_OUTSIDE_PERIOD"
	CodeUnparseableDate            = "UNPARSEABLE_DATE"
	CodeLowOverallConfidence       = "LOW_OVERALL_CONFIDENCE"
	CodeMissingRequiredFields      = "MISSING_REQUIRED_FIELDS"
	CodeLowFieldConfidence         = "LOW_FIELD_CONFIDENCE"
	CodeHighTransactionErrorRate   = "HIGH_TRANSACTION_ERROR_RATE"
	CodeExtractionError            = "EXTRACTION_ERROR"
	CodeNondeterministicExtraction = "NONDETERMINISTIC_EXTRACTION"
)

type FieldValidation struct {
	Field      string  `json:"field"`
	IsValid    bool    `json:"is_valid"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message,omitempty"`
}

// Warning is a recoverable finding. It never flips IsValid on its own.
type Warning struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type ValidationError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Field       string `json:"field,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

type ValidationResult struct {
	IsValid                  bool              `json:"is_valid"`
	MeetsConfidenceThreshold bool              `json:"meets_confidence_threshold"`
	HasRequiredFields        bool              `json:"has_required_fields"`
	ConsistencyChecksPassed  bool              `json:"consistency_checks_passed"`
	FieldValidations         []FieldValidation `json:"field_validations"`
	Warnings                 []Warning         `json:"warnings"`
	Errors                   []ValidationError `json:"errors"`
	RequiresHumanReview      bool              `json:"requires_human_review"`
	HumanReviewReasons       []string          `json:"human_review_reasons"`
}

// HasUnrecoverableErrors reports whether any error is non-recoverable.
func (r ValidationResult) HasUnrecoverableErrors() bool {
	for _, e := range r.Errors {
		if !e.Recoverable {
			return true
		}
	}
	return false
}

// HasWarning reports whether a warning with the given code is present.
func (r ValidationResult) HasWarning(code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// HasError reports whether an error with the given code is present.
func (r ValidationResult) HasError(code string) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Field returns the first field validation with the given name.
func (r ValidationResult) Field(name string) (FieldValidation, bool) {
	for _, f := range r.FieldValidations {
		if f.Field == name {
			return f, true
		}
	}
	return FieldValidation{}, false
}

// ExtractionFailure builds the synthetic result recorded when the extraction
// call itself fails: nothing was verified, so every sub-flag is false.
func ExtractionFailure(message string) ValidationResult {
	return ValidationResult{
		FieldValidations: []FieldValidation{},
		Warnings:         []Warning{},
		Errors: []ValidationError{{
			Code:        CodeExtractionError,
			Message:     message,
			Recoverable: false,
		}},
		RequiresHumanReview: true,
		HumanReviewReasons:  []string{"extraction failed: " + message},
	}
}
