package formatter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mfserna/taskcycle/internal/domain"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

var colorEnabled = true

// SetColorEnabled toggles styling globally; plain text comes back when
// stdout is not a terminal.
func SetColorEnabled(on bool) {
	colorEnabled = on
}

func render(style lipgloss.Style, text string) string {
	if !colorEnabled {
		return text
	}
	return style.Render(text)
}

// StatusBadge returns a colored status marker such as "● done".
func StatusBadge(status domain.TaskStatus) string {
	switch status {
	case domain.TaskDone:
		return render(StyleGreen, "● "+string(status))
	case domain.TaskInProgress:
		return render(StyleYellow, "● "+string(status))
	case domain.TaskCancelled:
		return render(StyleDim, "● "+string(status))
	default:
		return render(StyleBlue, "● "+string(status))
	}
}

// KindBadge marks recurring masters and diverged occurrences in listings.
func KindBadge(t *domain.Task) string {
	switch {
	case t == nil:
		return render(StyleDim, "·")
	case t.Kind == domain.KindMaster:
		return render(StylePurple, "↻")
	case t.IsException:
		return render(StyleYellow, "✱")
	case t.Kind == domain.KindInstance:
		return render(StyleBlue, "↻")
	default:
		return " "
	}
}

// Header renders a section header with an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", render(StyleHeader, upper), render(StyleDim, line))
}

func Dim(text string) string {
	return render(StyleDim, text)
}

func Bold(text string) string {
	return render(StyleBold, text)
}
