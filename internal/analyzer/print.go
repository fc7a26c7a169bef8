package analyzer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wireit-go/wireit/internal/core/domain"
)

// Printer renders a batch of diagnostics as caret-style source excerpts,
// relativizing file paths to cwd.
type Printer struct {
	cwd   string
	cache map[string][]byte
}

// NewPrinter constructs a Printer that relativizes paths against cwd.
func NewPrinter(cwd string) *Printer {
	return &Printer{cwd: cwd, cache: map[string][]byte{}}
}

// Print renders every diagnostic in diags to w.
func (p *Printer) Print(w *strings.Builder, diags domain.DiagnosticList) {
	for i, d := range diags {
		if i > 0 {
			w.WriteByte('\n')
		}
		p.printOne(w, d)
	}
}

func (p *Printer) printOne(w *strings.Builder, d domain.Diagnostic) {
	glyph := "error"
	if d.Severity == domain.SeverityWarning {
		glyph = "warning"
	}
	fmt.Fprintf(w, "%s: %s\n", glyph, d.Message)
	p.printLocation(w, d.Primary)
	for _, loc := range d.Supplemental {
		p.printLocation(w, loc)
	}
}

func (p *Printer) printLocation(w *strings.Builder, loc domain.Location) {
	if loc.IsZero() {
		return
	}
	data := p.read(loc.File)
	relFile := loc.File
	if rel, err := filepath.Rel(p.cwd, loc.File); err == nil {
		relFile = rel
	}

	if data == nil {
		fmt.Fprintf(w, "  --> %s\n", relFile)
		return
	}

	startLine, startCol := lineCol(data, loc.Offset)
	endLine, endCol := lineCol(data, loc.Offset+loc.Length)

	fmt.Fprintf(w, "  --> %s:%d:%d\n", relFile, startLine, startCol)

	lines := bytes.Split(data, []byte("\n"))
	for ln := startLine; ln <= endLine && ln-1 < len(lines); ln++ {
		text := lines[ln-1]
		fmt.Fprintf(w, "%5d | %s\n", ln, text)

		underlineStart := 1
		underlineEnd := len(text) + 1
		if ln == startLine {
			underlineStart = startCol
		}
		if ln == endLine {
			underlineEnd = endCol
		}
		if underlineEnd <= underlineStart {
			underlineEnd = underlineStart + 1
		}
		fmt.Fprintf(w, "      | %s%s\n", strings.Repeat(" ", underlineStart-1), strings.Repeat("^", underlineEnd-underlineStart))
	}
}

func (p *Printer) read(file string) []byte {
	if data, ok := p.cache[file]; ok {
		return data
	}
	// #nosec G304 -- file comes from a Location already produced by parsing this same file
	data, err := os.ReadFile(file)
	if err != nil {
		p.cache[file] = nil
		return nil
	}
	p.cache[file] = data
	return data
}

// lineCol converts a byte offset to 1-based line and column by scanning
// newline indexes.
func lineCol(data []byte, offset int) (line, col int) {
	line = 1
	lastNewline := -1
	for i := 0; i < offset && i < len(data); i++ {
		if data[i] == '\n' {
			line++
			lastNewline = i
		}
	}
	col = offset - lastNewline
	return line, col
}
