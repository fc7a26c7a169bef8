package analyzer

import (
	"strings"

	"github.com/wireit-go/wireit/internal/core/domain"
)

// reportCycle emits a "Cycle detected" diagnostic whose trail begins at the
// first entry of the cycle on the DFS path and ends with the repeated
// reference, formatted as a box-drawn list:
//
//	.-> a
//	|   b
//	|   c
//	`-- a
//
// A cycle of length 1 collapses to just the first and last lines.
func (a *Analyzer) reportCycle(stack []domain.ScriptReference, repeated domain.ScriptReference) {
	start := 0
	for i, ref := range stack {
		if ref.Key() == repeated.Key() {
			start = i
			break
		}
	}
	trail := stack[start:]

	var b strings.Builder
	b.WriteString("Cycle detected:\n")
	for i, ref := range trail {
		label := ref.Label(a.rootDir)
		switch i {
		case 0:
			b.WriteString(".-> ")
		default:
			b.WriteString("|   ")
		}
		b.WriteString(label)
		b.WriteByte('\n')
	}
	b.WriteString("`-- ")
	b.WriteString(repeated.Label(a.rootDir))

	primary := domain.Location{}
	if node, ok := a.arena[trail[0].Key()]; ok {
		primary = node.DeclLocation
	}

	a.diags = append(a.diags, domain.Diagnostic{
		Severity: domain.SeverityError,
		Message:  b.String(),
		Primary:  primary,
	})
}
