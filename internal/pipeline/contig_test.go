package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binderflow/backend/internal/structure"
	"binderflow/backend/pkg/models"
)

func TestFixContigs(t *testing.T) {
	// chain A holds residues 1-120, chain B residues 1-30
	atoms := append(caChain("A", 120, 0, 80), caChain("B", 30, 20, 80)...)

	tests := []struct {
		name     string
		spec     string
		want     string
		warnings int
	}{
		{"in range", "A10-40/0 50-70", "A10-40/0 50-70", 0},
		{"past the end", "A200-230/0 50-70", "A90-120/0 50-70", 1},
		{"before the start", "A-5-10/0 60", "A1-16/0 60", 1},
		{"longer than chain", "B1-100/0 40", "B1-30/0 40", 1},
		{"lowercase chain", "a5-15/0 50-70", "A5-15/0 50-70", 0},
		{"single residue", "A130/0 20", "A120-120/0 20", 1},
		{"two chains", "A1-10/0 B20-40/0 30", "A1-10/0 B10-30/0 30", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := FixContigs(tt.spec, atoms)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, warnings, tt.warnings)
		})
	}
}

func TestFixContigs_Errors(t *testing.T) {
	atoms := caChain("A", 50, 0, 80)

	_, _, err := FixContigs("   ", atoms)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "contigs", verr.Field)

	_, _, err = FixContigs("C1-10/0 50", atoms)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "chain C")
}

func TestShiftWindow(t *testing.T) {
	tests := []struct {
		start, end, lo, hi int
		wantStart, wantEnd int
	}{
		{10, 20, 1, 100, 10, 20},
		{95, 110, 1, 100, 85, 100},
		{-3, 5, 1, 100, 1, 9},
		{1, 500, 1, 100, 1, 100},
		{200, 230, 1, 120, 90, 120},
	}
	for _, tt := range tests {
		s, e := shiftWindow(tt.start, tt.end, tt.lo, tt.hi)
		assert.Equal(t, tt.wantStart, s)
		assert.Equal(t, tt.wantEnd, e)
	}
}

func TestFilterHotspots(t *testing.T) {
	atoms := caChain("A", 20, 0, 80)

	kept, warnings, err := FilterHotspots([]string{"A5", " a12 ", "A99", "B3", "nonsense"}, atoms)
	require.NoError(t, err)
	assert.Equal(t, []string{"A5", "A12"}, kept)
	assert.Len(t, warnings, 3)

	kept, warnings, err = FilterHotspots(nil, atoms)
	require.NoError(t, err)
	assert.Nil(t, kept)
	assert.Nil(t, warnings)

	_, warnings, err = FilterHotspots([]string{"B1", "B2"}, atoms)
	require.Error(t, err)
	assert.Len(t, warnings, 2)
}

func TestFilterHotspots_UsesTruncatedInput(t *testing.T) {
	full := pdbOf(caChain("A", 20, 0, 80))
	atoms := structure.Parse(structure.CoordinateRecords(full, 10))

	kept, warnings, err := FilterHotspots([]string{"A5", "A15"}, atoms)
	require.NoError(t, err)
	assert.Equal(t, []string{"A5"}, kept)
	assert.Len(t, warnings, 1)
}
