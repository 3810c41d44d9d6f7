package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Printer writes styled CLI output. Every command prints through one
// Printer so tests can capture it with a buffer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// Writer returns the underlying output.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Printf writes formatted content
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// Success prints a green check line.
func (p *Printer) Success(msg string) {
	p.Println(SuccessTitleStyle.Render(SuccessMarker) + " " + msg)
}

// Error prints a red "Error:" line.
func (p *Printer) Error(msg string) {
	p.Println(ErrorTitleStyle.Render(FailureMarker+" Error:") + " " + msg)
}

// Warning prints an orange warning line.
func (p *Printer) Warning(msg string) {
	p.Println(WarningStyle.Render(WarningMarker) + " " + msg)
}

// Info prints a blue informational line.
func (p *Printer) Info(msg string) {
	p.Println(InfoStyle.Render(InfoMarker) + " " + msg)
}

// Muted prints a dim line.
func (p *Printer) Muted(msg string) {
	p.Println(MutedStyle.Render(msg))
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintHeader prints a banner box
func (p *Printer) PrintHeader(h *Header) {
	p.Println(h.SetWidth(p.width).Render())
}

// PrintResult prints a result box
func (p *Printer) PrintResult(r *Result) {
	p.Println(r.SetWidth(p.width).Render())
}

// PrintTable prints a table sized to its content
func (p *Printer) PrintTable(headers []string, rows [][]string) {
	p.Println(RenderTable(headers, rows, 0))
}
