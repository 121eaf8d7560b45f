// Package report renders finished reports for people.
package report

import (
	"fmt"
	"io"
	"strings"

	"company-intel/internal/models"
)

var (
	heavyRule = strings.Repeat("=", 50)
	lightRule = strings.Repeat("-", 50)
)

// WriteText writes the framed plain text form of r. Failed runs print the
// header followed by the error line.
func WriteText(w io.Writer, r *models.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nCOMPANY INTELLIGENCE REPORT\n%s\n\n", heavyRule, heavyRule)

	if r.Error != "" {
		fmt.Fprintf(&b, "❌ ERROR: %s\n", r.Error)
	} else {
		fmt.Fprintf(&b, "Company: %s\n", r.Company)
		section(&b, "RAW DATA", r.RawData)
		section(&b, "ANALYSIS", r.Analysis)
		fmt.Fprintf(&b, "\n%s\n", heavyRule)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Text is WriteText into a string.
func Text(r *models.Report) string {
	var b strings.Builder
	_ = WriteText(&b, r)
	return b.String()
}

// Subject is a one line summary for notification titles.
func Subject(r *models.Report) string {
	company := r.Company
	if company == "" {
		company = "unknown company"
	}
	if r.Succeeded() {
		return fmt.Sprintf("Company intelligence report: %s", company)
	}
	return fmt.Sprintf("Company intelligence report failed: %s (%s)", company, r.Status)
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "\n%s\n%s\n%s\n%s\n", lightRule, title, lightRule, body)
}
