package report

import (
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

func BuildMarkdown(s types.SuiteSummary) string {
	var b strings.Builder
	b.WriteString("# Extraction Acceptance Report\n\n")
	if s.SuiteName != "" {
		b.WriteString(fmt.Sprintf("- Suite: `%s`\n", s.SuiteName))
	}
	if s.SuiteDigest != "" {
		b.WriteString(fmt.Sprintf("- Suite Digest: `%s`\n", s.SuiteDigest))
	}
	if s.RunID != "" {
		b.WriteString(fmt.Sprintf("- Run ID: `%s`\n", s.RunID))
	}
	b.WriteString(fmt.Sprintf("- Pass Rate: **%.1f%%** (%d/%d)\n", s.PassRate*100, s.Passed, s.Total))
	b.WriteString(fmt.Sprintf("- Failed: `%d`\n", s.Failed))
	if s.Skipped > 0 {
		b.WriteString(fmt.Sprintf("- Skipped: `%d`\n", s.Skipped))
	}
	b.WriteString(fmt.Sprintf("- Total Time: `%dms`\n\n", s.TotalExecutionTimeMs))

	b.WriteString("## Results\n\n")
	b.WriteString("| Test | State | Passed | Confidence | Required Fields | Consistency | Review | Time (ms) |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|\n")
	for _, r := range s.Results {
		c := r.CriteriaValidation
		review := c.RequiresHumanReview || r.ExpectedValidation.RequiresHumanReview
		b.WriteString(fmt.Sprintf("| %s | %s | %t | %t | %t | %t | %t | %d |\n",
			escape(r.TestCase.ID), r.FinalState, r.Passed,
			c.MeetsConfidenceThreshold, c.HasRequiredFields, c.ConsistencyChecksPassed, review, r.ExecutionTimeMs))
	}

	failures := make([]types.TestExecutionResult, 0)
	for _, r := range s.Results {
		if !r.Passed {
			failures = append(failures, r)
		}
	}
	if len(failures) > 0 {
		b.WriteString("\n## Failures\n")
		for _, r := range failures {
			b.WriteString(fmt.Sprintf("\n### %s\n\n", r.TestCase.ID))
			if r.TestCase.Input.DocumentLocation != "" {
				b.WriteString(fmt.Sprintf("- Document: `%s`\n", r.TestCase.Input.DocumentLocation))
			}
			if r.Error != "" {
				b.WriteString(fmt.Sprintf("- Error: %s\n", escape(r.Error)))
				continue
			}
			writeFindings(&b, r.CriteriaValidation)
			for _, f := range r.ExpectedValidation.FieldValidations {
				if !f.IsValid {
					b.WriteString(fmt.Sprintf("- Mismatch `%s`: %s\n", f.Field, escape(f.Message)))
				}
			}
		}
	}

	if len(s.Recommendations) > 0 {
		b.WriteString("\n## Recommendations\n\n")
		for _, rec := range s.Recommendations {
			b.WriteString("- " + rec + "\n")
		}
	}
	return b.String()
}

// BuildValidationMarkdown renders a single criteria validation, as produced
// by `evidencecheck validate`.
func BuildValidationMarkdown(title string, v types.ValidationResult) string {
	status := "VALID"
	if !v.IsValid {
		status = "INVALID"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# Validation: %s\n\n", title))
	b.WriteString(fmt.Sprintf("- Status: **%s**\n", status))
	b.WriteString(fmt.Sprintf("- Meets Confidence Threshold: `%t`\n", v.MeetsConfidenceThreshold))
	b.WriteString(fmt.Sprintf("- Has Required Fields: `%t`\n", v.HasRequiredFields))
	b.WriteString(fmt.Sprintf("- Consistency Checks Passed: `%t`\n", v.ConsistencyChecksPassed))
	b.WriteString(fmt.Sprintf("- Requires Human Review: `%t`\n", v.RequiresHumanReview))

	if len(v.FieldValidations) > 0 {
		b.WriteString("\n## Fields\n\n")
		b.WriteString("| Field | Valid | Confidence | Message |\n")
		b.WriteString("|---|---:|---:|---|\n")
		for _, f := range v.FieldValidations {
			msg := f.Message
			if msg == "" {
				msg = "ok"
			}
			b.WriteString(fmt.Sprintf("| %s | %t | %.1f | %s |\n", f.Field, f.IsValid, f.Confidence, escape(msg)))
		}
	}
	if len(v.Warnings)+len(v.Errors) > 0 {
		b.WriteString("\n## Findings\n\n")
		writeFindings(&b, v)
	}
	if len(v.HumanReviewReasons) > 0 {
		b.WriteString("\n## Human Review\n\n")
		for _, r := range v.HumanReviewReasons {
			b.WriteString("- " + r + "\n")
		}
	}
	return b.String()
}

func writeFindings(b *strings.Builder, v types.ValidationResult) {
	for _, e := range v.Errors {
		kind := "error"
		if e.Recoverable {
			kind = "recoverable error"
		}
		b.WriteString(fmt.Sprintf("- `%s` (%s): %s\n", e.Code, kind, escape(e.Message)))
	}
	for _, w := range v.Warnings {
		line := fmt.Sprintf("- `%s` (warning): %s", w.Code, escape(w.Message))
		if w.Suggestion != "" {
			line += " Suggestion: " + escape(w.Suggestion)
		}
		b.WriteString(line + "\n")
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func WriteMarkdown(path string, s types.SuiteSummary) error {
	return writeFile(path, []byte(BuildMarkdown(s)))
}

func WriteValidationMarkdown(path, title string, v types.ValidationResult) error {
	return writeFile(path, []byte(BuildValidationMarkdown(title, v)))
}
