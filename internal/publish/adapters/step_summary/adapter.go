// Package stepsummary reports run results as markdown appended to the
// GitHub Actions job summary file.
package stepsummary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// maxSummaryLen is the per-step size limit GitHub enforces on
// GITHUB_STEP_SUMMARY content.
const maxSummaryLen = 1024 * 1024

// Adapter implements ports.ReportingPort. With an empty path reports are
// only logged.
type Adapter struct {
	path    string
	appName string
	logger  *slog.Logger
}

// New creates a reporter writing to path (usually $GITHUB_STEP_SUMMARY).
func New(path, appName string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Adapter{path: path, appName: appName, logger: logger}
}

// Report appends the markdown for report to the summary file.
func (a *Adapter) Report(_ context.Context, report domain.Report) error {
	if a.path == "" {
		a.logger.Debug("no step summary file configured", "operation", report.Operation)
		return nil
	}

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening step summary: %w", err)
	}
	_, werr := f.WriteString(a.Format(report))
	if err := errors.Join(werr, f.Close()); err != nil {
		return fmt.Errorf("writing step summary: %w", err)
	}
	return nil
}

// Format renders report as markdown. Exported for tests.
func (a *Adapter) Format(report domain.Report) string {
	updated, skipped, failed := domain.CountByStatus(report.Results)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s: %s\n\n", a.appName, report.Operation)

	switch {
	case report.Err != nil:
		fmt.Fprintf(&sb, "❌ **Status:** %s\n\n", report.Err)
	case failed > 0:
		fmt.Fprintf(&sb, "⚠️ **Status:** %d chart(s) failed\n\n", failed)
	default:
		sb.WriteString("✅ **Status:** success\n\n")
	}
	fmt.Fprintf(&sb, "%d updated, %d skipped, %d failed\n\n", updated, skipped, failed)
	formatCommit(&sb, report.Commit)

	if len(report.Results) > 0 {
		formatTable(&sb, report.Results)
		formatDetails(&sb, report.Results)
	}
	return truncateIfNeeded(sb.String())
}

func formatCommit(sb *strings.Builder, commit *domain.CommitResult) {
	if commit == nil {
		return
	}
	if commit.Updated == 0 {
		sb.WriteString("No commit: files already current on the branch.\n\n")
		return
	}
	fmt.Fprintf(sb, "Committed %d file(s) in `%s`\n\n", commit.Updated, shortSHA(commit.SHA))
}

func formatTable(sb *strings.Builder, results []domain.ChartResult) {
	sb.WriteString("| Chart | Version | Status | Detail |\n")
	sb.WriteString("|-------|---------|--------|--------|\n")
	for _, r := range results {
		name := r.Name
		if name == "" {
			name = r.Dir
		}
		detail := r.Detail
		if r.Status == domain.StatusFailed {
			detail = "see error below"
		}
		fmt.Fprintf(sb, "| `%s` | %s | %s | %s |\n", name, r.Version, statusLabel(r.Status), escapeCell(detail))
	}
	sb.WriteString("\n")
}

func formatDetails(sb *strings.Builder, results []domain.ChartResult) {
	for _, r := range results {
		switch {
		case r.Status == domain.StatusFailed && r.Err != nil:
			fmt.Fprintf(sb, "<details>\n<summary><b>%s</b> error</summary>\n\n", r.Dir)
			fmt.Fprintf(sb, "```\n%s\n```\n\n</details>\n\n", r.Err)
		case r.Status == domain.StatusUpdated && r.Diff != "":
			fmt.Fprintf(sb, "<details>\n<summary><b>%s</b> diff</summary>\n\n", r.Dir)
			fmt.Fprintf(sb, "```diff\n%s\n```\n\n</details>\n\n", r.Diff)
		}
	}
}

func statusLabel(s domain.Status) string {
	switch s {
	case domain.StatusUpdated:
		return "📝 Updated"
	case domain.StatusSkipped:
		return "⏭️ Skipped"
	case domain.StatusFailed:
		return "❌ Failed"
	default:
		return "Unknown"
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

func truncateIfNeeded(text string) string {
	if len(text) > maxSummaryLen {
		truncMsg := "\n\n... (output truncated)\n"
		cut := maxSummaryLen - len(truncMsg)
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		return text[:cut] + truncMsg
	}
	return text
}
