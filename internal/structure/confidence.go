package structure

import "math"

// HasPlausibleConfidence reports whether the confidence column looks like
// per-residue model confidence: values span more than 5 units, stay within
// [0,100] and average between 20 and 100. Anything else is treated as
// unknown confidence.
func HasPlausibleConfidence(atoms []Atom) bool {
	lo, hi, sum := math.Inf(1), math.Inf(-1), 0.0
	n := 0
	for _, a := range atoms {
		if !a.HasConfidence || a.HetAtom {
			continue
		}
		lo = math.Min(lo, a.Confidence)
		hi = math.Max(hi, a.Confidence)
		sum += a.Confidence
		n++
	}
	if n == 0 {
		return false
	}
	avg := sum / float64(n)
	return hi-lo > 5 && lo >= 0 && hi <= 100 && avg >= 20 && avg <= 100
}

// ResidueConfidences returns the anchor-atom confidence of each residue in
// first-seen order.
func ResidueConfidences(atoms []Atom) []float64 {
	var out []float64
	for _, r := range GroupByResidue(atoms) {
		if a, ok := r.Anchor(); ok && a.HasConfidence && !a.HetAtom {
			out = append(out, a.Confidence)
		}
	}
	return out
}

// MeanConfidence averages the anchor-atom confidence values. It reports false
// when the confidence column is not plausible.
func MeanConfidence(atoms []Atom) (float64, bool) {
	if !HasPlausibleConfidence(atoms) {
		return 0, false
	}
	scores := ResidueConfidences(atoms)
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), true
}
