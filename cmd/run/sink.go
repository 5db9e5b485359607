package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// sink prints module log lines. Lines are styled only on a terminal.
type sink struct {
	out    io.Writer
	styled bool
}

func newSink(f *os.File) *sink {
	return &sink{out: f, styled: term.IsTerminal(int(f.Fd()))}
}

func (s *sink) Log(msg string) {
	if !s.styled {
		fmt.Fprintln(s.out, msg)
		return
	}
	ts := helpStyle.Render(time.Now().Format("15:04:05.000"))
	fmt.Fprintf(s.out, "%s %s %s\n", ts, sourceStyle.Render("[module.log]"), msg)
}
