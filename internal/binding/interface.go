// Package binding analyzes the interface between two structures: residue
// contacts, distance statistics and a heuristic binding-quality score.
package binding

import (
	"math"
	"sort"

	"binderflow/backend/internal/structure"
)

// DefaultCutoff is the anchor-to-anchor distance, in Ångström, below which two
// residues are in contact.
const DefaultCutoff = 5.0

// Contact is one residue pair within the cutoff.
type Contact struct {
	ResidueA     int     `json:"residue_a"`
	ResidueNameA string  `json:"residue_name_a"`
	ResidueB     int     `json:"residue_b"`
	ResidueNameB string  `json:"residue_name_b"`
	Distance     float64 `json:"distance"`
}

// InterfaceResult describes the contacts between structure A and structure B.
// It is derived from the atoms passed in and never updated afterwards.
type InterfaceResult struct {
	ResiduesA   []int     `json:"interface_residues_a"`
	ResiduesB   []int     `json:"interface_residues_b"`
	Contacts    []Contact `json:"contacts"`
	NumContacts int       `json:"num_contacts"`
	AvgDistance float64   `json:"avg_distance"`
	MinDistance float64   `json:"min_distance"`
	MaxDistance float64   `json:"max_distance"`
}

// FindInterfaceResidues compares the anchor atom of every residue in a with
// every residue in b and keeps the pairs closer than cutoff. Residues without
// an anchor atom are ignored. An empty interface is a valid result with zeroed
// statistics.
func FindInterfaceResidues(a, b []structure.Atom, cutoff float64) InterfaceResult {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	anchorsA := anchors(a)
	anchorsB := anchors(b)

	sideA := map[int]struct{}{}
	sideB := map[int]struct{}{}
	res := InterfaceResult{
		ResiduesA: []int{},
		ResiduesB: []int{},
		Contacts:  []Contact{},
	}
	sum := 0.0
	res.MinDistance = math.Inf(1)
	for _, ra := range anchorsA {
		for _, rb := range anchorsB {
			d := ra.atom.Distance(rb.atom)
			if d >= cutoff {
				continue
			}
			sideA[ra.residue.Number] = struct{}{}
			sideB[rb.residue.Number] = struct{}{}
			res.Contacts = append(res.Contacts, Contact{
				ResidueA:     ra.residue.Number,
				ResidueNameA: ra.residue.Name,
				ResidueB:     rb.residue.Number,
				ResidueNameB: rb.residue.Name,
				Distance:     d,
			})
			sum += d
			res.MinDistance = math.Min(res.MinDistance, d)
			res.MaxDistance = math.Max(res.MaxDistance, d)
		}
	}

	res.NumContacts = len(res.Contacts)
	if res.NumContacts == 0 {
		res.MinDistance = 0
		return res
	}
	res.AvgDistance = sum / float64(res.NumContacts)
	res.ResiduesA = sortedKeys(sideA)
	res.ResiduesB = sortedKeys(sideB)
	return res
}

type anchored struct {
	residue structure.Residue
	atom    structure.Atom
}

func anchors(atoms []structure.Atom) []anchored {
	var out []anchored
	for _, r := range structure.GroupByResidue(atoms) {
		if a, ok := r.Anchor(); ok {
			out = append(out, anchored{residue: r, atom: a})
		}
	}
	return out
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// ContactMap holds parallel per-contact columns for plotting.
type ContactMap struct {
	ResiduesA []int     `json:"residues_a"`
	ResiduesB []int     `json:"residues_b"`
	Distances []float64 `json:"distances"`
}

// NewContactMap flattens the contacts of r into columns.
func NewContactMap(r InterfaceResult) ContactMap {
	m := ContactMap{
		ResiduesA: make([]int, 0, len(r.Contacts)),
		ResiduesB: make([]int, 0, len(r.Contacts)),
		Distances: make([]float64, 0, len(r.Contacts)),
	}
	for _, c := range r.Contacts {
		m.ResiduesA = append(m.ResiduesA, c.ResidueA)
		m.ResiduesB = append(m.ResiduesB, c.ResidueB)
		m.Distances = append(m.Distances, c.Distance)
	}
	return m
}

// AreaPerInterfaceResidue is the buried area, in Å², credited to each
// interface residue by EstimateBuriedSurfaceArea.
const AreaPerInterfaceResidue = 20.0

// EstimateBuriedSurfaceArea is a coarse buried-area estimate from the size of
// the interface. It is not a solvent-accessibility calculation.
func EstimateBuriedSurfaceArea(r InterfaceResult) float64 {
	return float64(len(r.ResiduesA)+len(r.ResiduesB)) * AreaPerInterfaceResidue
}
