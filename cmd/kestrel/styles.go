package main

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/etslang/kestrel/tree"
	"github.com/mattn/go-isatty"
)

// Styles renders the output of the commands.
type Styles struct {
	Named     lipgloss.Style
	Anonymous lipgloss.Style
	Error     lipgloss.Style
	Missing   lipgloss.Style

	Success lipgloss.Style
	Failure lipgloss.Style
	Dim     lipgloss.Style
	Bold    lipgloss.Style
}

func NewStyles(colorEnabled bool) *Styles {
	if !colorEnabled {
		plain := lipgloss.NewStyle()
		return &Styles{
			Named:     plain,
			Anonymous: plain,
			Error:     plain,
			Missing:   plain,
			Success:   plain,
			Failure:   plain,
			Dim:       plain,
			Bold:      plain,
		}
	}
	return &Styles{
		Named:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Anonymous: lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Missing:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		Success:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		Failure:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:      lipgloss.NewStyle().Bold(true),
	}
}

// Decorator styles the nodes of a printed tree by their kind.
func (s *Styles) Decorator() tree.Decorator {
	return func(n tree.Node, label string) string {
		switch {
		case n.IsError():
			return s.Error.Render(label)
		case n.IsMissing():
			return s.Missing.Render(label)
		case n.IsNamed():
			return s.Named.Render(label)
		default:
			return s.Anonymous.Render(label)
		}
	}
}

// IsColorEnabled tells whether to color the output written to writer.
// Mode values: "auto" (default), "always", "never".
// In auto mode, color is enabled only if the writer is a TTY and NO_COLOR is not set.
func IsColorEnabled(mode string, writer io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" {
			return false
		}
		if f, ok := writer.(*os.File); ok {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
		return false
	}
}
