package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

var (
	chainRange = regexp.MustCompile(`^([A-Za-z])(-?\d+)(?:-(-?\d+))?$`)
	hotspotRe  = regexp.MustCompile(`^([A-Za-z])(-?\d+)$`)
)

// FixContigs checks every chain range of a contig spec such as
// "A1-25/0 70-100" against the residues in atoms. A range reaching outside its
// chain is shifted to fit, keeping its length when the chain is long enough,
// and a warning is returned. A chain that does not exist is an error.
func FixContigs(spec string, atoms []structure.Atom) (string, []string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", nil, &models.ValidationError{Field: "contigs", Reason: "contig specification is empty"}
	}

	var warnings []string
	segments := strings.Fields(spec)
	for si, segment := range segments {
		parts := strings.Split(segment, "/")
		for pi, part := range parts {
			m := chainRange.FindStringSubmatch(part)
			if m == nil {
				continue
			}
			chain := strings.ToUpper(m[1])
			start, _ := strconv.Atoi(m[2])
			end := start
			if m[3] != "" {
				end, _ = strconv.Atoi(m[3])
			}
			if end < start {
				start, end = end, start
			}

			lo, hi, ok := structure.ResidueRange(atoms, chain)
			if !ok {
				return "", warnings, &models.ValidationError{
					Field:  "contigs",
					Reason: fmt.Sprintf("chain %s does not exist in the target structure", chain),
				}
			}
			fs, fe := shiftWindow(start, end, lo, hi)
			fixed := fmt.Sprintf("%s%d-%d", chain, fs, fe)
			if fs != start || fe != end {
				warnings = append(warnings, fmt.Sprintf(
					"contig %s is outside chain %s residues %d-%d; using %s", part, chain, lo, hi, fixed))
			}
			parts[pi] = fixed
		}
		segments[si] = strings.Join(parts, "/")
	}
	return strings.Join(segments, " "), warnings, nil
}

// shiftWindow moves [start,end] inside [lo,hi], preserving its length when
// it fits and clamping to the whole range otherwise.
func shiftWindow(start, end, lo, hi int) (int, int) {
	length := end - start
	if length > hi-lo {
		return lo, hi
	}
	if start < lo {
		return lo, lo + length
	}
	if end > hi {
		return hi - length, hi
	}
	return start, end
}

// FilterHotspots keeps hotspot residues ("A14") that exist in atoms. Each
// dropped entry produces a warning; an error is returned only when hotspots
// were requested and none survived.
func FilterHotspots(hotspots []string, atoms []structure.Atom) ([]string, []string, error) {
	if len(hotspots) == 0 {
		return nil, nil, nil
	}
	var kept, warnings []string
	for _, h := range hotspots {
		h = strings.TrimSpace(h)
		m := hotspotRe.FindStringSubmatch(h)
		if m == nil {
			warnings = append(warnings, fmt.Sprintf("hotspot %q is not of the form <chain><residue>; dropped", h))
			continue
		}
		chain := strings.ToUpper(m[1])
		num, _ := strconv.Atoi(m[2])
		if !structure.HasResidue(atoms, chain, num) {
			warnings = append(warnings, fmt.Sprintf("hotspot %s%d does not exist in the target structure; dropped", chain, num))
			continue
		}
		kept = append(kept, fmt.Sprintf("%s%d", chain, num))
	}
	if len(kept) == 0 {
		return nil, warnings, &models.ValidationError{Field: "hotspot_res", Reason: "none of the hotspot residues exist in the target structure"}
	}
	return kept, warnings, nil
}
