package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clinical-bridge/clinbridge/internal/pipeline"
	"github.com/clinical-bridge/clinbridge/internal/store"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func statusStyle(s string) lipgloss.Style {
	switch s {
	case pipeline.WorkflowStatusCompleted.String(), pipeline.PhaseStatusCompleted.String():
		return okStyle
	case pipeline.WorkflowStatusFailed.String(), pipeline.PhaseStatusFailed.String():
		return failStyle
	case pipeline.WorkflowStatusNeedsReview.String():
		return warnStyle
	case pipeline.PhaseStatusSkipped.String():
		return skipStyle
	default:
		return lipgloss.NewStyle()
	}
}

// renderSummary prints a human-readable view of one run. With full set,
// each phase's content and error are included.
func renderSummary(w io.Writer, summary pipeline.WorkflowSummary, full bool) {
	fmt.Fprintln(w, titleStyle.Render("Workflow "+summary.WorkflowID))
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Status:"),
		statusStyle(summary.Status.String()).Render(summary.Status.String()))

	if summary.FailedPhase != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Failed phase:"), summary.FailedPhase)
	}
	if summary.ReviewPhase != "" {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Review phase:"), summary.ReviewPhase)
	}

	fmt.Fprintf(w, "%s %dms  %s %d in / %d out\n",
		labelStyle.Render("Duration:"), summary.TotalDurationMS,
		labelStyle.Render("Tokens:"),
		summary.TotalTokens.InputTokens, summary.TotalTokens.OutputTokens)
	fmt.Fprintln(w)

	fmt.Fprintln(w, headerStyle.Render("Phases"))
	for _, p := range summary.Phases {
		fmt.Fprintf(w, "  %-18s %s", p.Phase, statusStyle(p.Status.String()).Render(p.Status.String()))
		if p.DurationMS > 0 {
			fmt.Fprintf(w, "  %dms", p.DurationMS)
		}
		fmt.Fprintln(w)

		if p.Error != "" {
			fmt.Fprintf(w, "    %s %s\n", failStyle.Render("error:"), p.Error)
		}
		if full && p.Content != "" {
			fmt.Fprintln(w, indent(p.Content, "    "))
		}
	}

	if summary.Diagnostic != nil {
		fmt.Fprintf(w, "\n%s %s\n", failStyle.Render("Diagnostic:"), summary.Diagnostic.Error)
	}
}

// renderRunList prints a compact table of persisted runs.
func renderRunList(w io.Writer, runs []*store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-36s  %-13s  %-19s  %s", "WORKFLOW", "STATUS", "RECORDED", "TOKENS")))
	for _, run := range runs {
		s := run.Summary
		fmt.Fprintf(w, "%-36s  %-13s  %-19s  %d\n",
			s.WorkflowID,
			statusStyle(s.Status.String()).Render(fmt.Sprintf("%-13s", s.Status)),
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			s.TotalTokens.InputTokens+s.TotalTokens.OutputTokens,
		)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
