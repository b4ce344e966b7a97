package binding

import (
	"fmt"
	"strings"

	"binderflow/backend/internal/structure"
)

// CombineStructures merges two structure texts into one complex. Records of a
// are moved to chainA, records of b to chainB with serials renumbered to follow
// a's atoms. Each side is closed by a terminator record and the result by an
// end record.
func CombineStructures(a, b, chainA, chainB string) string {
	atomsA := structure.Parse(a)
	atomsB := structure.Parse(b)

	var out strings.Builder
	fmt.Fprintln(&out, "REMARK   1 COMBINED COMPLEX")
	fmt.Fprintf(&out, "REMARK   1 STRUCTURE A: CHAIN %s\n", chainA)
	fmt.Fprintf(&out, "REMARK   1 STRUCTURE B: CHAIN %s\n", chainB)

	for _, atom := range atomsA {
		atom.Chain = chainA
		out.WriteString(structure.FormatAtom(atom))
		out.WriteByte('\n')
	}
	out.WriteString("TER\n")

	offset := len(atomsA)
	for i, atom := range atomsB {
		atom.Chain = chainB
		atom.Serial = offset + i + 1
		out.WriteString(structure.FormatAtom(atom))
		out.WriteByte('\n')
	}
	out.WriteString("TER\n")
	out.WriteString("END\n")
	return out.String()
}
