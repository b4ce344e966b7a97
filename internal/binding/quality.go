package binding

// Points awarded per criterion. The three criteria are independent and sum
// to at most 100.
const (
	maxContactPoints  = 40
	maxDistancePoints = 40
	maxClashPoints    = 20
)

// Grade thresholds on the total score.
const (
	ExcellentThreshold = 85
	GoodThreshold      = 70
	ModerateThreshold  = 50
	PoorThreshold      = 30
)

// Warning texts emitted by AssessBindingQuality.
const (
	WarnIncreaseInterface   = "Consider increasing interface size"
	WarnInsufficientContact = "Insufficient interface contacts: interface may be too small for stable binding"
	WarnClashRisk           = "Interface may be too tight: check for steric clashes"
	WarnTooLoose            = "Interface too loose: proteins may be too far apart"
	WarnMinorClash          = "Possible minor steric clashes: review interface packing"
	WarnSevereClash         = "Severe steric clash detected: significant structural optimization needed"
)

// QualityAssessment is the rubric outcome for one interface.
type QualityAssessment struct {
	Score          int      `json:"quality_score"`
	Grade          string   `json:"grade"`
	Feedback       []string `json:"feedback"`
	Warnings       []string `json:"warnings"`
	Recommendation string   `json:"recommendation"`
}

// AssessBindingQuality scores r with a fixed rubric: contact count (40 points),
// mean contact distance (40 points) and minimum distance as a clash check
// (20 points). It is a reproducible geometric heuristic, not an energy.
func AssessBindingQuality(r InterfaceResult) QualityAssessment {
	q := QualityAssessment{Feedback: []string{}, Warnings: []string{}}

	switch n := r.NumContacts; {
	case n >= 15:
		q.Score += maxContactPoints
		q.Feedback = append(q.Feedback, "Excellent number of interface contacts")
	case n >= 10:
		q.Score += 30
		q.Feedback = append(q.Feedback, "Good number of interface contacts")
	case n >= 5:
		q.Score += 15
		q.Feedback = append(q.Feedback, "Moderate number of interface contacts")
		q.Warnings = append(q.Warnings, WarnIncreaseInterface)
	default:
		q.Feedback = append(q.Feedback, "Insufficient interface contacts")
		q.Warnings = append(q.Warnings, WarnInsufficientContact)
	}

	switch d := r.AvgDistance; {
	case d >= 3.5 && d <= 4.5:
		q.Score += maxDistancePoints
		q.Feedback = append(q.Feedback, "Optimal average interface distance")
	case d >= 3.0 && d <= 5.0:
		q.Score += 25
		q.Feedback = append(q.Feedback, "Good interface distance")
	case d < 3.0:
		q.Score += 10
		q.Feedback = append(q.Feedback, "Interface may be too tight")
		q.Warnings = append(q.Warnings, WarnClashRisk)
	default:
		q.Score += 15
		q.Feedback = append(q.Feedback, "Interface distance is suboptimal")
		q.Warnings = append(q.Warnings, WarnTooLoose)
	}

	switch d := r.MinDistance; {
	case d >= 2.8:
		q.Score += maxClashPoints
		q.Feedback = append(q.Feedback, "No severe steric clashes detected")
	case d >= 2.5:
		q.Score += 10
		q.Feedback = append(q.Feedback, "Possible minor steric clashes")
		q.Warnings = append(q.Warnings, WarnMinorClash)
	default:
		q.Feedback = append(q.Feedback, "Severe steric clashes detected")
		q.Warnings = append(q.Warnings, WarnSevereClash)
	}

	q.Grade, q.Recommendation = Grade(q.Score)
	return q
}

// Grade maps a rubric score to its grade bucket and recommendation.
func Grade(score int) (grade, recommendation string) {
	switch {
	case score >= ExcellentThreshold:
		return "A - Excellent", "This binder design looks highly promising. Proceed to experimental validation."
	case score >= GoodThreshold:
		return "B - Good", "Good binding interface. Minor optimization may improve binding."
	case score >= ModerateThreshold:
		return "C - Moderate", "Interface shows potential but needs optimization. Focus on key residues."
	case score >= PoorThreshold:
		return "D - Poor", "Significant redesign recommended. Consider alternative approaches."
	default:
		return "F - Insufficient", "Interface is inadequate. Complete redesign required."
	}
}

// Confidence grades for model confidence averages.
const (
	ConfidenceExcellent = "Excellent"
	ConfidenceGood      = "Good"
	ConfidenceFair      = "Fair"
	ConfidencePoor      = "Poor"
	ConfidenceUnknown   = "Unknown"
)

// ConfidenceGrade grades a mean per-residue confidence. A nil mean means the
// structure carried no plausible confidence values.
func ConfidenceGrade(mean *float64) string {
	switch {
	case mean == nil:
		return ConfidenceUnknown
	case *mean > 90:
		return ConfidenceExcellent
	case *mean > 70:
		return ConfidenceGood
	case *mean > 50:
		return ConfidenceFair
	default:
		return ConfidencePoor
	}
}
