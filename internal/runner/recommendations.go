package runner

import (
	"fmt"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

const AllClear = "No systemic issues detected: extraction meets the acceptance criteria for this suite."

// Recommend scans the results by category and returns one recommendation per
// category that triggered, or AllClear when none did. Failures caused by
// extraction errors are reported on their own and excluded from the
// confidence and required-field counts, so the number of failures with
// meets_confidence_threshold false is the extraction-error count plus the
// low-confidence count.
func Recommend(results []types.TestExecutionResult, passRate, passingThreshold float64) []string {
	var recs []string
	if passRate < passingThreshold {
		recs = append(recs, fmt.Sprintf(
			"Pass rate %.1f%% is %.1f points below the %.1f%% threshold; review failing cases before relying on automated extraction.",
			passRate*100, (passingThreshold-passRate)*100, passingThreshold*100))
	}

	var extractionErrors, lowConfidence, missingFields, scanned, slow int
	for _, res := range results {
		if c := res.TestCase.Criteria; c.MaxExtractionTimeMs > 0 && res.ExecutionTimeMs > c.MaxExtractionTimeMs {
			slow++
		}
		if res.Passed {
			continue
		}
		if res.TestCase.Input.Characteristics.Scanned {
			scanned++
		}
		if res.FinalState == types.StateCompletedError {
			extractionErrors++
			continue
		}
		if !res.CriteriaValidation.MeetsConfidenceThreshold {
			lowConfidence++
		}
		if !res.CriteriaValidation.HasRequiredFields {
			missingFields++
		}
	}

	if extractionErrors > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d test(s) failed because the extraction call errored or timed out; check extraction service availability and the per-call timeout.",
			extractionErrors))
	}
	if lowConfidence > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d failing test(s) fell below the overall confidence threshold; review extraction settings or source document quality.",
			lowConfidence))
	}
	if missingFields > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d failing test(s) are missing required fields; review the extraction query and field configuration.",
			missingFields))
	}
	if scanned > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d failing test(s) used scanned documents; route scanned statements to human review.",
			scanned))
	}
	if slow > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d test(s) exceeded their extraction time budget; consider asynchronous processing for large documents.",
			slow))
	}
	if len(recs) == 0 {
		return []string{AllClear}
	}
	return recs
}
