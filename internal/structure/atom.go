// Package structure parses fixed-column atomic coordinate text into atoms and
// residues. Parsing is permissive: malformed records are skipped.
package structure

import "math"

// Atom is one coordinate record. Atoms are values and are never mutated after parsing.
type Atom struct {
	HetAtom       bool
	Serial        int
	Name          string
	ResidueName   string
	Chain         string
	ResidueNumber int
	X, Y, Z       float64
	Element       string
	// Confidence holds the B-factor column, which prediction models use for
	// per-residue confidence on a 0-100 scale.
	Confidence    float64
	HasConfidence bool
}

// Distance returns the Euclidean distance between two atoms.
func (a Atom) Distance(b Atom) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AnchorAtomName is the atom used for residue-level distances.
const AnchorAtomName = "CA"

// Residue groups the atoms sharing a chain and residue number.
type Residue struct {
	Chain  string
	Number int
	Name   string
	Atoms  []Atom
}

// Anchor returns the residue's alpha-carbon.
func (r Residue) Anchor() (Atom, bool) {
	for _, a := range r.Atoms {
		if a.Name == AnchorAtomName {
			return a, true
		}
	}
	return Atom{}, false
}

type residueKey struct {
	chain  string
	number int
}

// GroupByResidue groups atoms by (chain, residue number), keeping the order in
// which each residue was first seen.
func GroupByResidue(atoms []Atom) []Residue {
	index := make(map[residueKey]int)
	var residues []Residue
	for _, a := range atoms {
		key := residueKey{a.Chain, a.ResidueNumber}
		i, ok := index[key]
		if !ok {
			i = len(residues)
			index[key] = i
			residues = append(residues, Residue{Chain: a.Chain, Number: a.ResidueNumber, Name: a.ResidueName})
		}
		residues[i].Atoms = append(residues[i].Atoms, a)
	}
	return residues
}

// Chains returns the chain identifiers in first-seen order.
func Chains(atoms []Atom) []string {
	seen := map[string]bool{}
	var chains []string
	for _, a := range atoms {
		if !seen[a.Chain] {
			seen[a.Chain] = true
			chains = append(chains, a.Chain)
		}
	}
	return chains
}

// SplitByChain returns the atoms of each chain, keyed by chain identifier.
func SplitByChain(atoms []Atom) map[string][]Atom {
	out := make(map[string][]Atom)
	for _, a := range atoms {
		out[a.Chain] = append(out[a.Chain], a)
	}
	return out
}

// ResidueRange returns the lowest and highest residue number on chain.
func ResidueRange(atoms []Atom, chain string) (lo, hi int, ok bool) {
	for _, a := range atoms {
		if a.Chain != chain {
			continue
		}
		if !ok || a.ResidueNumber < lo {
			lo = a.ResidueNumber
		}
		if !ok || a.ResidueNumber > hi {
			hi = a.ResidueNumber
		}
		ok = true
	}
	return lo, hi, ok
}

// HasResidue reports whether chain carries a residue numbered number.
func HasResidue(atoms []Atom, chain string, number int) bool {
	for _, a := range atoms {
		if a.Chain == chain && a.ResidueNumber == number {
			return true
		}
	}
	return false
}
