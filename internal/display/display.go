// Package display provides terminal formatting for mailrules output.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))

	AddStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	RemoveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	UnreadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2563eb")).Bold(true)
	StarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
)

// MessageDot returns a marker for a message's read and starred state.
func MessageDot(labels []string) string {
	var unread, starred bool
	for _, l := range labels {
		switch l {
		case "UNREAD":
			unread = true
		case "STARRED":
			starred = true
		}
	}
	switch {
	case starred:
		return StarStyle.Render("★")
	case unread:
		return UnreadStyle.Render("●")
	default:
		return Dim.Render("·")
	}
}

// LabelChanges renders a mutation as "+ADD -REMOVE".
func LabelChanges(add, remove []string) string {
	parts := make([]string, 0, len(add)+len(remove))
	for _, l := range add {
		parts = append(parts, AddStyle.Render("+"+l))
	}
	for _, l := range remove {
		parts = append(parts, RemoveStyle.Render("-"+l))
	}
	if len(parts) == 0 {
		return Dim.Render("(no label changes)")
	}
	return strings.Join(parts, " ")
}

// TimeAgo formats t relative to now.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens a string to maxLen runes, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, Success.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// ErrorMsg prints a red X + message.
func ErrorMsg(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ErrStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Header prints a section header.
func Header(w io.Writer, title string) {
	fmt.Fprintln(w, Bold.Render(title))
}

// SubHeader prints a dim subsection label.
func SubHeader(w io.Writer, title string) {
	fmt.Fprintln(w, Muted.Render(title))
}

// EmailLine prints one message summary line.
func EmailLine(w io.Writer, labels []string, from, subject string, received time.Time) {
	fmt.Fprintf(w, "  %s %-32s %-50s %s\n",
		MessageDot(labels),
		Truncate(from, 32),
		Truncate(subject, 50),
		Dim.Render(TimeAgo(received)))
}
