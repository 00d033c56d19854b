package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/sprintboard/pkg/core"
)

// Adaptive colors that work in both light and dark terminals.
var (
	colorSuccess = lipgloss.AdaptiveColor{Dark: "#22c55e", Light: "#16a34a"}
	colorError   = lipgloss.AdaptiveColor{Dark: "#ef4444", Light: "#dc2626"}
	colorWarning = lipgloss.AdaptiveColor{Dark: "#f59e0b", Light: "#d97706"}
	colorMuted   = lipgloss.AdaptiveColor{Dark: "#6b7280", Light: "#9ca3af"}
	colorAccent  = lipgloss.AdaptiveColor{Dark: "#a78bfa", Light: "#7c3aed"}
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleAccent  = lipgloss.NewStyle().Foreground(colorAccent)
	styleBold    = lipgloss.NewStyle().Bold(true)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "→"
)

func printSuccess(format string, args ...any) {
	fmt.Printf("%s %s\n", styleSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleError.Render(iconError), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s %s\n", styleWarning.Render(iconWarning), fmt.Sprintf(format, args...))
}

func printInfo(format string, args ...any) {
	fmt.Printf("%s %s\n", styleMuted.Render(iconInfo), fmt.Sprintf(format, args...))
}

// printFailure reports err with its kind and a hint, never a stack.
func printFailure(msg string, err error) {
	printError("%s: %v", msg, err)
	if kind := core.KindOf(err); kind != "" {
		fmt.Fprintf(os.Stderr, "  %s %s\n", styleMuted.Render("kind:"), styleAccent.Render(string(kind)))
		if hint := core.Hint(kind); hint != "" {
			fmt.Fprintf(os.Stderr, "  %s %s\n", styleMuted.Render("hint:"), hint)
		}
	}
}

// summary renders a report's stats on one line.
func summary(r *core.Report) string {
	return fmt.Sprintf("%d items: %s added, %s moved, %s updated, %s removed",
		r.Items,
		styleBold.Render(fmt.Sprint(r.Stats.Added)),
		styleBold.Render(fmt.Sprint(r.Stats.Moved)),
		styleBold.Render(fmt.Sprint(r.Stats.Updated)),
		styleBold.Render(fmt.Sprint(r.Stats.Removed)),
	)
}
