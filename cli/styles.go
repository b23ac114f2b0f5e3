// Package cli holds the terminal presentation shared by the commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	primaryColor = lipgloss.Color("#2E86AB")
	errorColor   = lipgloss.Color("#A40000")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// Row is one key/value line of a summary
type Row struct {
	Key   string
	Value string
}

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render("sonido-splice"))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintSummary prints a titled block of key/value rows
func PrintSummary(w io.Writer, title string, rows ...Row) {
	fmt.Fprintln(w, TitleStyle.Render(title))
	for _, r := range rows {
		fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(r.Key+":"), ValueStyle.Render(r.Value))
	}
	fmt.Fprintln(w)
}

// FormatFrames renders a frame list, eliding the middle of long lists
func FormatFrames(frames []int, limit int) string {
	if len(frames) == 0 {
		return "none"
	}

	parts := make([]string, 0, min(len(frames), limit)+1)
	for i, f := range frames {
		if limit > 0 && i == limit-1 && len(frames) > limit {
			parts = append(parts, "...", strconv.Itoa(frames[len(frames)-1]))
			break
		}
		parts = append(parts, strconv.Itoa(f))
	}
	return strings.Join(parts, " ")
}
