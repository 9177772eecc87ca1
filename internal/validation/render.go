package validation

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("45"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	goodStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Render writes a human readable report. Colour is dropped automatically
// when w is not a terminal.
func Render(w io.Writer, r Report) error {
	var b strings.Builder

	name := r.Name
	if name == "" {
		name = "validation"
	}
	b.WriteString(titleStyle.Render("Gate validation: "+name) + "\n")
	b.WriteString(field("Accuracy", fmt.Sprintf("%d/%d = %s", r.Correct, r.Total, accuracyStyle(r.Accuracy).Render(pct(r.Accuracy)))))
	b.WriteString(field("False positives (lost memories)", countStyle(r.FalsePositives).Render(fmt.Sprint(r.FalsePositives))))
	b.WriteString(field("False negatives (noise persisted)", countStyle(r.FalseNegatives).Render(fmt.Sprint(r.FalseNegatives))))

	writeMisses(&b, "should persist, got flushed", r.Misclassified, true)
	writeMisses(&b, "should flush, got persisted", r.Misclassified, false)

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderCV writes a cross-validation summary.
func RenderCV(w io.Writer, r CVReport) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%d-fold cross-validation", r.Folds)) + "\n")

	folds := make([]string, len(r.Accuracy))
	for i, a := range r.Accuracy {
		folds[i] = pct(a)
	}
	b.WriteString(field("Folds", dimStyle.Render(strings.Join(folds, "  "))))
	b.WriteString(field("Accuracy", accuracyStyle(r.Mean).Render(pct(r.Mean))+dimStyle.Render(" (+/- "+pct(2*r.StdDev)+")")))

	_, err := io.WriteString(w, b.String())
	return err
}

func writeMisses(b *strings.Builder, title string, misses []Miss, falsePositive bool) {
	var lines []string
	for _, m := range misses {
		if m.FalsePositive() == falsePositive {
			lines = append(lines, fmt.Sprintf("  %s %s", dimStyle.Render(fmt.Sprintf("%.2f", m.Confidence)), m.Text))
		}
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString(sectionStyle.Render("--- "+title+" ---") + "\n")
	b.WriteString(strings.Join(lines, "\n") + "\n")
}

func field(label, value string) string {
	return labelStyle.Render(label+": ") + valueStyle.Render(value) + "\n"
}

func pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func accuracyStyle(a float64) lipgloss.Style {
	switch {
	case a >= 0.9:
		return goodStyle
	case a >= 0.75:
		return warnStyle
	default:
		return badStyle
	}
}

func countStyle(n int) lipgloss.Style {
	if n == 0 {
		return goodStyle
	}
	return badStyle
}
