package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirm prints prompt followed by "[y/N]" and reads one line from in.
// Only "y" or "yes" (any case) confirms.
func Confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprint(out, WarningStyle.Bold(true).Render(prompt+" [y/N]: "))

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true
	}
	_, _ = fmt.Fprintln(out, MutedStyle.Render("  Operation cancelled."))
	return false
}
