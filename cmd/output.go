package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/olimci/sleepsync/pkg/notify"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func printHeading(title string) {
	fmt.Println(headingStyle.Render(title))
}

// printField prints an aligned "label value" row.
func printField(label string, value any) {
	fmt.Printf("  %s %v\n", labelStyle.Render(fmt.Sprintf("%-14s", label)), value)
}

func printList(items []string) {
	if len(items) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, item := range items {
		fmt.Printf("  %s\n", item)
	}
}

func renderOutcome(o notify.Outcome) string {
	switch {
	case o.Failed():
		return failStyle.Render(o.String())
	case o == notify.OutcomeCompletedWithErrors:
		return warnStyle.Render(o.String())
	default:
		return okStyle.Render(o.String())
	}
}

func printChangedPaths(verbose bool, title string, paths []string) {
	if !verbose || len(paths) == 0 {
		return
	}
	fmt.Println(labelStyle.Render(title + ":"))
	for _, path := range paths {
		fmt.Printf("  %s\n", path)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(none)"
	}
	return s
}
