package structure

import (
	"sort"
	"strings"
)

var threeToOne = map[string]byte{
	"ALA": 'A', "ARG": 'R', "ASN": 'N', "ASP": 'D', "CYS": 'C',
	"GLU": 'E', "GLN": 'Q', "GLY": 'G', "HIS": 'H', "ILE": 'I',
	"LEU": 'L', "LYS": 'K', "MET": 'M', "PHE": 'F', "PRO": 'P',
	"SER": 'S', "THR": 'T', "TRP": 'W', "TYR": 'Y', "VAL": 'V',
}

// OneLetterCode maps a three-letter residue name to its one-letter code.
func OneLetterCode(residueName string) (byte, bool) {
	c, ok := threeToOne[strings.ToUpper(residueName)]
	return c, ok
}

// ExtractSequence returns the one-letter sequence of atoms ordered by chain
// and residue number. Residues outside the standard 20 are skipped.
func ExtractSequence(atoms []Atom) string {
	residues := GroupByResidue(atoms)
	sort.SliceStable(residues, func(i, j int) bool {
		if residues[i].Chain != residues[j].Chain {
			return residues[i].Chain < residues[j].Chain
		}
		return residues[i].Number < residues[j].Number
	})

	var b strings.Builder
	for _, r := range residues {
		if c, ok := OneLetterCode(r.Name); ok {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ChainSequences returns the sequence of each chain.
func ChainSequences(atoms []Atom) map[string]string {
	out := make(map[string]string)
	for chain, chainAtoms := range SplitByChain(atoms) {
		out[chain] = ExtractSequence(chainAtoms)
	}
	return out
}
