package structure

import (
	"strconv"
	"strings"
)

// Column layout of ATOM/HETATM records (0-based, end exclusive).
const (
	colSerialStart     = 6
	colSerialEnd       = 11
	colNameStart       = 12
	colNameEnd         = 16
	colResNameStart    = 17
	colResNameEnd      = 20
	colChain           = 21
	colResSeqStart     = 22
	colResSeqEnd       = 26
	colXStart          = 30
	colYStart          = 38
	colZStart          = 46
	colZEnd            = 54
	colBFactorStart    = 60
	colBFactorEnd      = 66
	colElementStart    = 76
	colElementEnd      = 78
	minCoordinateWidth = colZEnd
)

// Parse reads ATOM and HETATM records from text. Records that are too short or
// carry non-numeric serial, residue number or coordinate fields are dropped.
func Parse(text string) []Atom {
	var atoms []Atom
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if a, ok := parseRecord(line); ok {
			atoms = append(atoms, a)
		}
	}
	return atoms
}

func parseRecord(line string) (Atom, bool) {
	var het bool
	switch {
	case strings.HasPrefix(line, "ATOM"):
	case strings.HasPrefix(line, "HETATM"):
		het = true
	default:
		return Atom{}, false
	}
	if len(line) < minCoordinateWidth {
		return Atom{}, false
	}

	serial, err := strconv.Atoi(field(line, colSerialStart, colSerialEnd))
	if err != nil {
		return Atom{}, false
	}
	resSeq, err := strconv.Atoi(field(line, colResSeqStart, colResSeqEnd))
	if err != nil {
		return Atom{}, false
	}
	var xyz [3]float64
	for i, start := range []int{colXStart, colYStart, colZStart} {
		v, err := strconv.ParseFloat(field(line, start, start+8), 64)
		if err != nil {
			return Atom{}, false
		}
		xyz[i] = v
	}

	a := Atom{
		HetAtom:       het,
		Serial:        serial,
		Name:          field(line, colNameStart, colNameEnd),
		ResidueName:   field(line, colResNameStart, colResNameEnd),
		Chain:         field(line, colChain, colChain+1),
		ResidueNumber: resSeq,
		X:             xyz[0],
		Y:             xyz[1],
		Z:             xyz[2],
		Element:       field(line, colElementStart, colElementEnd),
	}
	if b, err := strconv.ParseFloat(field(line, colBFactorStart, colBFactorEnd), 64); err == nil {
		a.Confidence = b
		a.HasConfidence = true
	}
	return a, true
}

// field returns the trimmed columns [start, end) of line, clipped to its length.
func field(line string, start, end int) string {
	if start >= len(line) {
		return ""
	}
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[start:end])
}

// CoordinateRecords returns the ATOM records of text, at most limit of them
// when limit is positive.
func CoordinateRecords(text string, limit int) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, "ATOM") {
			continue
		}
		out = append(out, strings.TrimRight(line, "\r"))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return strings.Join(out, "\n")
}
