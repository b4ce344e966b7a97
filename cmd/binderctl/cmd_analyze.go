package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"binderflow/backend/internal/binding"
	"binderflow/backend/internal/structure"
)

var analyzeFlags struct {
	cutoff float64
	report bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <complex.pdb> | <target.pdb> <binder.pdb>",
	Short: "Score the interface of a complex or of two structures",
	Long: `Analyze finds interface contacts and grades the binding. With one file
the first two chains of the complex are compared; with two files the first
file is the target and the second the binder.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.Float64Var(&analyzeFlags.cutoff, "cutoff", binding.DefaultCutoff, "Contact distance in Ångström")
	f.BoolVar(&analyzeFlags.report, "report", false, "Print a human-readable report instead of JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFlags.cutoff <= 0 {
		return fmt.Errorf("--cutoff must be positive")
	}
	texts := make([]string, len(args))
	for i, path := range args {
		text, err := readText(path)
		if err != nil {
			return err
		}
		texts[i] = text
	}

	var a, b []structure.Atom
	if len(texts) == 1 {
		var err error
		if a, b, err = binding.SplitComplex(structure.Parse(texts[0])); err != nil {
			return err
		}
	} else {
		a, b = structure.Parse(texts[0]), structure.Parse(texts[1])
	}
	if len(a) == 0 || len(b) == 0 {
		return fmt.Errorf("structures contain no atom records")
	}

	analysis := binding.Analyze(a, b, analyzeFlags.cutoff)
	if !analyzeFlags.report {
		return printJSON(cmd.OutOrStdout(), analysis)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatReport(analysis))
	return nil
}

func formatReport(a binding.Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quality score: %d/100 (%s)\n", a.Quality.Score, a.Quality.Grade)
	fmt.Fprintf(&sb, "Contacts: %d  avg %.2f Å  min %.2f Å\n",
		a.Interface.NumContacts, a.Interface.AvgDistance, a.Interface.MinDistance)
	fmt.Fprintf(&sb, "Interface residues: %d target, %d binder\n",
		len(a.Interface.ResiduesA), len(a.Interface.ResiduesB))
	fmt.Fprintf(&sb, "Buried surface area (est.): %.0f Å²\n", a.BuriedSurfaceArea)
	for _, f := range a.Quality.Feedback {
		fmt.Fprintf(&sb, "  + %s\n", f)
	}
	for _, w := range a.Quality.Warnings {
		fmt.Fprintf(&sb, "  ! %s\n", w)
	}
	fmt.Fprintf(&sb, "%s\n", a.Quality.Recommendation)
	return sb.String()
}
