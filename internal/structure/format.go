package structure

import (
	"fmt"
	"strings"
)

// FormatAtom renders a as a fixed-column coordinate record.
func FormatAtom(a Atom) string {
	record := "ATOM  "
	if a.HetAtom {
		record = "HETATM"
	}
	name := a.Name
	if len(name) < 4 {
		name = " " + name
	}
	return fmt.Sprintf("%-6s%5d %-4s %3s %1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s",
		record, a.Serial, name, a.ResidueName, a.Chain, a.ResidueNumber,
		a.X, a.Y, a.Z, 1.0, a.Confidence, a.Element)
}

// Format renders atoms as structure text. A terminator record closes each
// chain and an end record closes the structure.
func Format(atoms []Atom) string {
	var b strings.Builder
	for i, a := range atoms {
		b.WriteString(FormatAtom(a))
		b.WriteByte('\n')
		if i == len(atoms)-1 || atoms[i+1].Chain != a.Chain {
			b.WriteString("TER\n")
		}
	}
	b.WriteString("END\n")
	return b.String()
}
