package binding

import (
	"errors"

	"binderflow/backend/internal/structure"
)

// ErrNotComplex is returned when a structure has fewer than two chains.
var ErrNotComplex = errors.New("structure has fewer than two chains")

// Analysis bundles everything derived from one interface.
type Analysis struct {
	Interface         InterfaceResult   `json:"interface"`
	Quality           QualityAssessment `json:"quality"`
	ContactMap        ContactMap        `json:"contact_map"`
	BuriedSurfaceArea float64           `json:"buried_surface_area"`
}

// Analyze computes the interface between a and b and scores it.
func Analyze(a, b []structure.Atom, cutoff float64) Analysis {
	iface := FindInterfaceResidues(a, b, cutoff)
	return Analysis{
		Interface:         iface,
		Quality:           AssessBindingQuality(iface),
		ContactMap:        NewContactMap(iface),
		BuriedSurfaceArea: EstimateBuriedSurfaceArea(iface),
	}
}

// SplitComplex separates a predicted complex into its first two chains in
// the order they appear.
func SplitComplex(atoms []structure.Atom) (first, second []structure.Atom, err error) {
	chains := structure.Chains(atoms)
	if len(chains) < 2 {
		return nil, nil, ErrNotComplex
	}
	byChain := structure.SplitByChain(atoms)
	return byChain[chains[0]], byChain[chains[1]], nil
}
