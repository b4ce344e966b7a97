package models

import (
	"fmt"
	"sort"
	"strings"
)

const (
	MinSequenceLength = 10
	MaxSequenceLength = 2000
	MinStructureAtoms = 10
)

// aminoAcids is the 20-letter alphabet accepted for protein sequences.
const aminoAcids = "ACDEFGHIKLMNPQRSTVWY"

// ValidationError reports input rejected before any external call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ValidateSequence cleans a protein sequence and checks alphabet and length.
func ValidateSequence(sequence string) (string, error) {
	clean := strings.ToUpper(strings.Join(strings.Fields(sequence), ""))
	if clean == "" {
		return "", &ValidationError{Field: "sequence", Reason: "sequence cannot be empty"}
	}

	invalid := map[rune]struct{}{}
	for _, r := range clean {
		if !strings.ContainsRune(aminoAcids, r) {
			invalid[r] = struct{}{}
		}
	}
	if len(invalid) > 0 {
		chars := make([]string, 0, len(invalid))
		for r := range invalid {
			chars = append(chars, string(r))
		}
		sort.Strings(chars)
		return "", &ValidationError{Field: "sequence", Reason: "invalid amino acids: " + strings.Join(chars, ", ")}
	}

	if len(clean) < MinSequenceLength {
		return "", &ValidationError{Field: "sequence", Reason: fmt.Sprintf("sequence too short (minimum %d residues)", MinSequenceLength)}
	}
	if len(clean) > MaxSequenceLength {
		return "", &ValidationError{Field: "sequence", Reason: fmt.Sprintf("sequence too long (maximum %d residues)", MaxSequenceLength)}
	}
	return clean, nil
}

// ValidateStructureText checks that text carries enough ATOM records to be
// worth analysing and returns the ATOM record count.
func ValidateStructureText(text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &ValidationError{Field: "structure", Reason: "structure content is empty"}
	}
	atoms := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "ATOM") {
			atoms++
		}
	}
	if atoms == 0 {
		return 0, &ValidationError{Field: "structure", Reason: "no ATOM records found"}
	}
	if atoms < MinStructureAtoms {
		return atoms, &ValidationError{Field: "structure", Reason: "too few atoms in structure"}
	}
	return atoms, nil
}

// ValidateBindingSiteResidues checks residue numbers lie in [1, maxResidue].
func ValidateBindingSiteResidues(residues []int, maxResidue int) error {
	for _, r := range residues {
		if r < 1 || r > maxResidue {
			return &ValidationError{
				Field:  "binding_site_residues",
				Reason: fmt.Sprintf("residue numbers must be between 1 and %d", maxResidue),
			}
		}
	}
	return nil
}
