package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	lazyload "github.com/abihf/lazy-loader"
	"github.com/abihf/lazy-loader/internal/config"
	"github.com/abihf/lazy-loader/query"
)

var (
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")
	titleColor   = lipgloss.Color("#A78BFA")

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(titleColor)

	nameStyle     = lipgloss.NewStyle().Width(16)
	priorityStyle = lipgloss.NewStyle().Width(8)
	cellStyle     = lipgloss.NewStyle().Width(12)
)

// maxPreview is the longest body preview printed for a result.
const maxPreview = 60

func renderResult(w io.Writer, e config.EndpointConfig, p lazyload.Priority, r query.Result[any], elapsed time.Duration) {
	var mark, detail string
	if r.IsError() {
		mark = errorStyle.Render("✗")
		detail = errorStyle.Render(r.Err.Error())
	} else {
		mark = successStyle.Render("✓")
		detail = preview(r.Data)
	}
	fmt.Fprintf(w, "%s %s%s%s %s\n",
		mark,
		nameStyle.Render(e.Name),
		priorityStyle.Render(p.String()),
		mutedStyle.Render(cellStyle.Render(elapsed.Round(time.Millisecond).String())),
		detail,
	)
}

func renderStatus(w io.Writer, st lazyload.Status, results []query.Result[any]) {
	failed := 0
	for _, r := range results {
		if r.IsError() {
			failed++
		}
	}
	summary := fmt.Sprintf("%d loaded, %d failed", len(results)-failed, failed)
	if st.AnyErrored {
		fmt.Fprintln(w, errorStyle.Render(summary))
		return
	}
	fmt.Fprintln(w, successStyle.Render(summary))
}

func renderTiers(w io.Writer) {
	fmt.Fprintln(w, titleStyle.Render(
		priorityStyle.Render("TIER")+cellStyle.Render("DELAY")+cellStyle.Render("STALE")+cellStyle.Render("RETRY")+"FOCUS",
	))
	for _, p := range lazyload.Priorities() {
		policy := p.Policy()
		fmt.Fprintf(w, "%s%s%s%s%t\n",
			priorityStyle.Render(p.String()),
			cellStyle.Render(p.Delay().String()),
			cellStyle.Render(policy.StaleTime.String()),
			cellStyle.Render(fmt.Sprint(policy.Retry)),
			policy.RefetchOnFocus,
		)
	}
}

// preview renders data as compact JSON cut to maxPreview runes.
func preview(data any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return mutedStyle.Render(fmt.Sprintf("%v", data))
	}
	s := []rune(string(b))
	if len(s) > maxPreview {
		return string(s[:maxPreview]) + "…"
	}
	return string(s)
}
