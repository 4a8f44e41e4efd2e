package risk

import "time"

// Risk level labels, bucketed by percentage with inclusive lower bounds.
const (
	LevelVeryHigh = "Very High"
	LevelHigh     = "High"
	LevelMedium   = "Medium"
	LevelLow      = "Low"
	LevelVeryLow  = "Very Low"
)

// Level buckets a risk percentage into its display label: >=80 Very High,
// >=60 High, >=40 Medium, >=20 Low, else Very Low.
func Level(pct float64) string {
	switch {
	case pct >= 80:
		return LevelVeryHigh
	case pct >= 60:
		return LevelHigh
	case pct >= 40:
		return LevelMedium
	case pct >= 20:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

// FeatureInsight pairs a feature's raw value with the forest model's
// importance weight and a short interpretive label.
type FeatureInsight struct {
	Value          float64 `json:"value"`
	Importance     float64 `json:"importance"`
	Interpretation string  `json:"interpretation"`
}

// ModelVote is one model's probability and verdict for a prediction.
type ModelVote struct {
	Probability float64 `json:"probability"` // percent, 0-100
	Prediction  string  `json:"prediction"`  // "High Risk" or "Low Risk"
}

// PredictionDetails breaks a model-based result down per model.
type PredictionDetails struct {
	RandomForest       ModelVote `json:"random_forest"`
	LogisticRegression ModelVote `json:"logistic_regression"`
	Ensemble           ModelVote `json:"ensemble"`
}

// Result is a completed risk assessment for one student. FeatureAnalysis and
// PredictionDetails are only populated on the model-based path; AssessmentID
// is empty when persisting the assessment failed (the score itself is still
// valid). A Result is only ever built from a real computed percentage, never
// from extraction defaults.
type Result struct {
	AssessmentID      string                    `json:"assessment_id,omitempty"`
	StudentID         int64                     `json:"student_id"`
	RiskPercentage    float64                   `json:"risk_percentage"`
	RiskLevel         string                    `json:"risk_level"`
	RiskFactors       map[string]bool           `json:"risk_factors"`
	PredictionDetails *PredictionDetails        `json:"prediction_details,omitempty"`
	FeatureAnalysis   map[string]FeatureInsight `json:"feature_analysis,omitempty"`
	Recommendations   []string                  `json:"recommendations,omitempty"`
	AnalysisDate      time.Time                 `json:"analysis_date"`
}

// Recommendations suggests follow-up actions for the active risk factors.
func Recommendations(flags map[string]bool) []string {
	var recs []string
	if flags[FactorPoorAttendance] {
		recs = append(recs, "Contact the student about attendance and identify the underlying cause")
	}
	if flags[FactorLowGPA] {
		recs = append(recs, "Arrange supplementary tutoring and study-skills counseling")
	}
	if flags[FactorFailedSubjects] {
		recs = append(recs, "Register the student for retakes or remedial sessions in failed subjects")
	}
	if flags[FactorDisciplinary] {
		recs = append(recs, "Schedule behavioral counseling and psychological support")
	}
	if flags[FactorFinancial] {
		recs = append(recs, "Review financial aid options, scholarships or part-time work support")
	}
	if flags[FactorDecliningTrend] {
		recs = append(recs, "Monitor closely and intervene early to stop the declining trend")
	}
	if len(recs) == 0 {
		recs = append(recs, "Keep monitoring and maintain current academic performance")
	}
	return recs
}
