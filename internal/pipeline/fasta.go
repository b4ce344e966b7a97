package pipeline

import (
	"strconv"
	"strings"
)

// FastaRecord is one sequence of a multi-FASTA document.
type FastaRecord struct {
	Header   string
	Sequence string
	Score    *float64
}

// ParseFasta reads a multi-FASTA document. Sequence lines are concatenated
// per record and a "score=" field in the header is parsed when present.
func ParseFasta(text string) []FastaRecord {
	var records []FastaRecord
	var cur *FastaRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.HasPrefix(line, ">"):
			records = append(records, FastaRecord{Header: strings.TrimPrefix(line, ">")})
			cur = &records[len(records)-1]
			cur.Score = headerScore(cur.Header)
		case cur != nil:
			cur.Sequence += line
		}
	}
	return records
}

func headerScore(header string) *float64 {
	i := strings.Index(header, "score=")
	if i < 0 {
		return nil
	}
	v := header[i+len("score="):]
	if j := strings.IndexAny(v, ", "); j >= 0 {
		v = v[:j]
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
