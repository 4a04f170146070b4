package notify

import "strings"

const reportTitle = "FlashAir & SleepHQ Upload Report"

// Report is everything that goes into the email body.
type Report struct {
	Outcome Outcome
	Missing []string
	Skipped []string
	Success []string // this run's success journal lines
	Errors  []string // this run's error journal lines
}

func (r Report) Subject() string {
	return r.Outcome.Subject()
}

// BuildReport renders the plain-text body. Empty optional sections are
// omitted; the two journal sections are always present.
func BuildReport(r Report) string {
	var b strings.Builder

	b.WriteString(reportTitle)
	b.WriteString("\nOutcome: ")
	b.WriteString(r.Outcome.String())
	b.WriteString("\n\n")

	if len(r.Missing) > 0 {
		b.WriteString("❗ Missing files:\n")
		writeLines(&b, r.Missing)
		b.WriteString("\n")
	}
	if len(r.Skipped) > 0 {
		b.WriteString("⏭️ Skipped files (already uploaded):\n")
		writeLines(&b, r.Skipped)
		b.WriteString("\n")
	}

	b.WriteString("--- SUCCESSFUL OPERATIONS ---\n")
	writeLines(&b, r.Success)
	b.WriteString("\n--- ERRORS ---\n")
	writeLines(&b, r.Errors)

	return b.String()
}

func writeLines(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
}
