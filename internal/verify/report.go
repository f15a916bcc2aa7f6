package verify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"matchwitness/internal/match"
	"matchwitness/internal/validate"
)

// ReportFormat specifies the output format for verification reports.
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatJSON     ReportFormat = "json"
	FormatMarkdown ReportFormat = "markdown"
	FormatYAML     ReportFormat = "yaml"
)

// Report combines a validation result with a reverification outcome for
// one record.
type Report struct {
	RecordID    string    `json:"record_id" yaml:"record_id"`
	Scoreline   string    `json:"scoreline" yaml:"scoreline"`
	Participant string    `json:"participant" yaml:"participant"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

	Validation validate.Result `json:"validation" yaml:"validation"`
	Rating     validate.Rating `json:"rating" yaml:"rating"`
	Suspicious bool            `json:"suspicious" yaml:"suspicious"`

	Reverify *ReverifyResult `json:"reverify,omitempty" yaml:"reverify,omitempty"`
	Degraded bool            `json:"degraded_hash,omitempty" yaml:"degraded_hash,omitempty"`

	// Error is set on batch entries whose record could not be processed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// BuildReport assembles the report for one verified record: validation
// over the current field values plus a reverification pass.
func (s *Service) BuildReport(v *match.VerifiedMatchRecord, participantID string, history []match.MatchRecord) *Report {
	result := s.engine.Evaluate(&v.MatchRecord, nil, history)
	rev := s.Reverify(v, participantID)

	return &Report{
		RecordID:    v.ID,
		Scoreline:   fmt.Sprintf("%d-%d", v.HomeScore, v.AwayScore),
		Participant: participantID,
		GeneratedAt: s.clock.Now().UTC(),
		Validation:  result,
		Rating:      validate.RatingFor(result.Score),
		Suspicious:  validate.IsSuspicious(&result),
		Reverify:    &rev,
		Degraded:    IsDegraded(v),
	}
}

// Summary renders the one-line form used in logs and batch listings.
func (r *Report) Summary() string {
	var sb strings.Builder

	if r.Error != "" {
		fmt.Fprintf(&sb, "[ERROR] %s: %s", r.RecordID, r.Error)
		return sb.String()
	}

	if r.Validation.IsValid {
		sb.WriteString("[VALID]")
	} else {
		sb.WriteString("[INVALID]")
	}
	fmt.Fprintf(&sb, " %s %s score=%d rating=%s", r.RecordID, r.Scoreline, r.Validation.Score, r.Rating)
	if r.Suspicious {
		sb.WriteString(" SUSPICIOUS")
	}
	if r.Reverify != nil && r.Reverify.ModificationDetected {
		sb.WriteString(" TAMPERED")
	}
	return sb.String()
}

// ReportGenerator renders reports in the configured format.
type ReportGenerator struct {
	format  ReportFormat
	verbose bool
}

// NewReportGenerator creates a generator for the given format.
func NewReportGenerator(format ReportFormat) *ReportGenerator {
	return &ReportGenerator{format: format}
}

// WithVerbose enables per-issue data dumps in text output.
func (g *ReportGenerator) WithVerbose(verbose bool) *ReportGenerator {
	g.verbose = verbose
	return g
}

// Generate renders one report.
func (g *ReportGenerator) Generate(report *Report, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(report)
	case FormatMarkdown:
		return g.generateMarkdown(report, w)
	case FormatText, "":
		return g.generateText(report, w)
	default:
		return fmt.Errorf("unknown report format: %s", g.format)
	}
}

// GenerateBatch renders many reports, preserving input order.
func (g *ReportGenerator) GenerateBatch(reports []*Report, w io.Writer) error {
	switch g.format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(reports)
	default:
		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if report.Error != "" {
				fmt.Fprintln(w, report.Summary())
				continue
			}
			if err := g.Generate(report, w); err != nil {
				return err
			}
		}
		return nil
	}
}

func (g *ReportGenerator) generateText(r *Report, w io.Writer) error {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "                 MATCH INTEGRITY VERIFICATION REPORT")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Record:       %s\n", r.RecordID)
	fmt.Fprintf(w, "Scoreline:    %s\n", r.Scoreline)
	fmt.Fprintf(w, "Participant:  %s\n", r.Participant)
	fmt.Fprintf(w, "Result:       %s\n", validString(r.Validation.IsValid))
	fmt.Fprintf(w, "Trust Score:  %d/100 (%s)\n", r.Validation.Score, r.Rating)
	fmt.Fprintf(w, "Suspicious:   %t\n", r.Suspicious)
	if r.Degraded {
		fmt.Fprintln(w, "Hash:         DEGRADED (non-secure fallback digest)")
	}
	fmt.Fprintln(w)

	if len(r.Validation.Issues) > 0 {
		fmt.Fprintln(w, "--- Issues ---")
		for _, issue := range r.Validation.Issues {
			fmt.Fprintf(w, "[%s] %-28s %s\n", severitySymbol(issue.Severity), issue.Code, issue.Message)
			if g.verbose && len(issue.Data) > 0 {
				fmt.Fprintf(w, "     data: %v\n", issue.Data)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Validation.Warnings) > 0 {
		fmt.Fprintln(w, "--- Warnings ---")
		for _, warn := range r.Validation.Warnings {
			fmt.Fprintf(w, "[??] %-28s %s\n", warn.Code, warn.Message)
			if g.verbose && warn.Recommendation != "" {
				fmt.Fprintf(w, "     fix: %s\n", warn.Recommendation)
			}
		}
		fmt.Fprintln(w)
	}

	if r.Reverify != nil {
		fmt.Fprintln(w, "--- Integrity ---")
		fmt.Fprintf(w, "Hash match:   %t\n", r.Reverify.HashMatches)
		fmt.Fprintf(w, "Seal match:   %t\n", r.Reverify.SealMatches)
		fmt.Fprintf(w, "Proof match:  %t\n", r.Reverify.ProofMatches)
		fmt.Fprintf(w, "Tampered:     %t\n", r.Reverify.ModificationDetected)
		for _, d := range r.Reverify.Details {
			fmt.Fprintf(w, "  * %s\n", d)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	return nil
}

func (g *ReportGenerator) generateMarkdown(r *Report, w io.Writer) error {
	fmt.Fprintf(w, "# Match Integrity Report: %s\n\n", r.RecordID)
	fmt.Fprintln(w, "| Property | Value |")
	fmt.Fprintln(w, "|----------|-------|")
	fmt.Fprintf(w, "| Scoreline | %s |\n", r.Scoreline)
	fmt.Fprintf(w, "| Participant | %s |\n", r.Participant)
	fmt.Fprintf(w, "| Result | %s |\n", validString(r.Validation.IsValid))
	fmt.Fprintf(w, "| Trust Score | %d/100 (%s) |\n", r.Validation.Score, r.Rating)
	fmt.Fprintf(w, "| Suspicious | %t |\n", r.Suspicious)
	if r.Reverify != nil {
		fmt.Fprintf(w, "| Tampered | %t |\n", r.Reverify.ModificationDetected)
	}
	fmt.Fprintln(w)

	if len(r.Validation.Issues) > 0 {
		fmt.Fprintln(w, "## Issues")
		fmt.Fprintln(w)
		for _, issue := range r.Validation.Issues {
			fmt.Fprintf(w, "- **%s** (%s): %s\n", issue.Code, issue.Severity, issue.Message)
		}
		fmt.Fprintln(w)
	}
	if len(r.Validation.Warnings) > 0 {
		fmt.Fprintln(w, "## Warnings")
		fmt.Fprintln(w)
		for _, warn := range r.Validation.Warnings {
			fmt.Fprintf(w, "- **%s**: %s\n", warn.Code, warn.Message)
		}
		fmt.Fprintln(w)
	}
	if r.Reverify != nil && len(r.Reverify.Details) > 0 {
		fmt.Fprintln(w, "## Tamper Details")
		fmt.Fprintln(w)
		for _, d := range r.Reverify.Details {
			fmt.Fprintf(w, "- %s\n", d)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "---\n*Generated at %s*\n", r.GeneratedAt.Format(time.RFC3339))
	return nil
}

func validString(valid bool) string {
	if valid {
		return "VALID"
	}
	return "INVALID"
}

func severitySymbol(s validate.Severity) string {
	switch s {
	case validate.SeverityCritical:
		return "!!"
	case validate.SeverityHigh:
		return "!+"
	default:
		return "!-"
	}
}
