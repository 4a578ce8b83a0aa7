// Package report renders line results for the console and for HTML files.
package report

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/berylliumsec/eclipse-go/ner"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	flaggedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// Successf prints a green status line.
func Successf(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Warnf prints a yellow status line.
func Warnf(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render(fmt.Sprintf(format, args...)))
}

// Errorf prints a red status line.
func Errorf(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render(fmt.Sprintf(format, args...)))
}

// PrintResult writes a single line verdict to the console. High-confidence
// non-benign lines are highlighted in red.
func PrintResult(r ner.LineResult) {
	line := fmt.Sprintf("%s: %s (Avg. Conf.: %.2f)", r.Text, r.Label, r.Confidence)
	if r.Flagged {
		fmt.Println(flaggedStyle.Render(line))
		return
	}
	fmt.Println(line)
}
