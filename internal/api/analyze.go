package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
)

type analyzeRequest struct {
	// Either a two-chain complex, or one structure per partner.
	Complex    string  `json:"complex_pdb"`
	StructureA string  `json:"structure_a"`
	StructureB string  `json:"structure_b"`
	Cutoff     float64 `json:"cutoff"`
}

type analyzeResponse struct {
	binding.Analysis
	ConfidenceA     *float64 `json:"plddt_a"`
	ConfidenceB     *float64 `json:"plddt_b"`
	ConfidenceGrade string   `json:"confidence_grade"`
}

// AnalyzeInterface scores the interface between two structures without
// touching any session
// (POST /api/v1/analyze)
func (s *Server) AnalyzeInterface(c echo.Context) error {
	var req analyzeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Cutoff <= 0 {
		req.Cutoff = s.cfg.InterfaceCutoff
	}
	if req.Cutoff <= 0 {
		req.Cutoff = binding.DefaultCutoff
	}

	var a, b []structure.Atom
	var grade string
	switch {
	case req.Complex != "":
		atoms := structure.Parse(req.Complex)
		var err error
		a, b, err = binding.SplitComplex(atoms)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		grade = binding.ConfidenceGrade(meanConfidence(atoms))
	case req.StructureA != "" && req.StructureB != "":
		a, b = structure.Parse(req.StructureA), structure.Parse(req.StructureB)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "complex_pdb or both structure_a and structure_b are required")
	}
	if len(a) == 0 || len(b) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "structures contain no atom records")
	}

	resp := analyzeResponse{
		Analysis:    binding.Analyze(a, b, req.Cutoff),
		ConfidenceA: meanConfidence(a),
		ConfidenceB: meanConfidence(b),
	}
	if grade == "" {
		grade = binding.ConfidenceGrade(nil)
	}
	resp.ConfidenceGrade = grade
	return c.JSON(http.StatusOK, resp)
}

func meanConfidence(atoms []structure.Atom) *float64 {
	if m, ok := structure.MeanConfidence(atoms); ok {
		return &m
	}
	return nil
}
