package verilog

import (
	"fmt"
	"strings"
)

// Severity grades a diagnostic.
type Severity int

const (
	SevWarning Severity = iota
	SevError
)

func (s Severity) String() string {
	if s == SevError {
		return "error"
	}
	return "warning"
}

// Diagnostic is one reported problem with its source location.
type Diagnostic struct {
	Severity Severity
	Line     int    // 1-based, zero when not tied to a line
	Source   string // the offending line
	Col      int
	Message  string
}

// String renders the diagnostic with the source line and a caret under the
// offending column.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "%s, line %d: %s", d.Severity, d.Line, d.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s", d.Severity, d.Message)
	}
	if d.Source != "" {
		b.WriteString("\n  ")
		b.WriteString(d.Source)
		b.WriteString("\n  ")
		b.WriteString(strings.Repeat(" ", d.Col))
		b.WriteByte('^')
	}
	return b.String()
}

// diagnostics collects problems, keeping at most max errors.
type diagnostics struct {
	lines      []string
	max        int
	list       []Diagnostic
	errors     int
	suppressed bool
	hadErrors  bool
}

func (d *diagnostics) source(line int) string {
	if line < 1 || line > len(d.lines) {
		return ""
	}
	return strings.TrimRight(d.lines[line-1], "\r\n")
}

func (d *diagnostics) add(sev Severity, t Token, format string, args ...any) {
	if sev == SevError {
		d.hadErrors = true
		d.errors++
		if d.errors > d.max {
			if !d.suppressed {
				d.suppressed = true
				d.list = append(d.list, Diagnostic{Severity: SevError, Message: "too many errors"})
			}
			return
		}
	}
	d.list = append(d.list, Diagnostic{
		Severity: sev,
		Line:     t.Line,
		Source:   d.source(t.Line),
		Col:      t.Col,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (d *diagnostics) errorf(t Token, format string, args ...any) {
	d.add(SevError, t, format, args...)
}

func (d *diagnostics) warnf(t Token, format string, args ...any) {
	d.add(SevWarning, t, format, args...)
}
