// Package presenter writes user-facing CLI output: status lines, lint
// findings and bar charts, with color support and a quiet mode.
package presenter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Presenter is the CLI output surface.
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Finding(severity, message string)
	Bar(label string, value, total int)
	Prompt(question string, options ...string) string
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter writes to a terminal or any pair of writers.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	input       io.Reader
	colorMode   ColorMode
	quiet       bool
}

// ColorMode selects when output is colored.
type ColorMode int

const (
	// ColorAuto colors output only when writing to a terminal
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output
	ColorAlways
	// ColorNever disables colored output
	ColorNever
)

// ColorEnv selects the color mode: always|force, never|off or auto.
const ColorEnv = "SKILLKIT_COLOR"

// New returns a presenter on stdout/stderr.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions returns a presenter on the given writers.
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		input:       os.Stdin,
		colorMode:   colorMode,
	}
}

func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv(ColorEnv) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error writes err to the error output. Errors ignore quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success writes a green check line.
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning writes a yellow warning line.
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info writes message as is.
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section writes an underlined header.
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

var findingStyles = map[string]struct {
	icon  string
	color *color.Color
}{
	"issue":   {"✗", color.New(color.FgRed)},
	"warning": {"⚠", color.New(color.FgYellow)},
	"good":    {"✓", color.New(color.FgGreen)},
	"info":    {"•", color.New(color.FgCyan)},
}

// Finding writes one lint finding. Issues are shown even in quiet mode.
func (p *TerminalPresenter) Finding(severity, message string) {
	if p.quiet && severity != "issue" {
		return
	}

	style, ok := findingStyles[severity]
	if !ok {
		fmt.Fprintf(p.output, "  %s\n", message)
		return
	}
	style.color.Fprintf(p.output, "  %s %s\n", style.icon, message)
}

const barWidth = 30

// Bar writes label with a proportional bar of value out of total.
func (p *TerminalPresenter) Bar(label string, value, total int) {
	if p.quiet {
		return
	}

	filled := 0
	if total > 0 {
		filled = value * barWidth / total
	}
	filled = min(max(filled, 0), barWidth)

	fmt.Fprintf(p.output, "%-30s %6d  %s%s\n", label, value,
		strings.Repeat("█", filled), strings.Repeat("░", barWidth-filled))
}

// Prompt asks question and returns the trimmed answer, or "" when input
// is closed.
func (p *TerminalPresenter) Prompt(question string, options ...string) string {
	promptColor := color.New(color.FgCyan)
	if len(options) > 0 {
		promptColor.Fprintf(p.output, "%s [%s]: ", question, strings.Join(options, "/"))
	} else {
		promptColor.Fprintf(p.output, "%s: ", question)
	}

	response, err := bufio.NewReader(p.input).ReadString('\n')
	if err != nil && response == "" {
		return ""
	}
	return strings.TrimSpace(response)
}

// Separator writes a faint rule.
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet toggles quiet mode.
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet reports whether quiet mode is on.
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

var defaultPresenter = New()

// Error writes err with the default presenter.
func Error(err error, context string) { defaultPresenter.Error(err, context) }

// Success writes message with the default presenter.
func Success(message string) { defaultPresenter.Success(message) }

// Warning writes message with the default presenter.
func Warning(message string) { defaultPresenter.Warning(message) }

// Info writes message with the default presenter.
func Info(message string) { defaultPresenter.Info(message) }

// Section writes title with the default presenter.
func Section(title string) { defaultPresenter.Section(title) }

// Finding writes a lint finding with the default presenter.
func Finding(severity, message string) { defaultPresenter.Finding(severity, message) }

// Bar writes a bar with the default presenter.
func Bar(label string, value, total int) { defaultPresenter.Bar(label, value, total) }

// Prompt asks question with the default presenter.
func Prompt(question string, options ...string) string {
	return defaultPresenter.Prompt(question, options...)
}

// Separator writes a rule with the default presenter.
func Separator() { defaultPresenter.Separator() }

// SetQuiet toggles quiet mode on the default presenter.
func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }

// IsQuiet reports quiet mode on the default presenter.
func IsQuiet() bool { return defaultPresenter.IsQuiet() }
