// Package risk implements the deterministic rule-based dropout-risk scorer
// and the shared result types for both the rule-based and model-based paths.
package risk

import (
	"edurisk/internal/features"
)

// Risk factor names shared between the rule scorer and the ensemble explainer.
const (
	FactorLowGPA             = "low_gpa"
	FactorFailedSubjects     = "failed_subjects"
	FactorAcademicWarning    = "academic_warning"
	FactorPoorAttendance     = "poor_attendance"
	FactorDisciplinary       = "disciplinary_issues"
	FactorDroppedClasses     = "dropped_classes"
	FactorFinancial          = "financial_issues"
	FactorDecliningTrend     = "declining_performance"
)

// Weights are the fixed point contributions of each scored risk factor.
// declining_performance is explanatory only and carries no weight.
var Weights = map[string]int{
	FactorLowGPA:          30,
	FactorFailedSubjects:  25,
	FactorAcademicWarning: 20,
	FactorPoorAttendance:  25,
	FactorDisciplinary:    15,
	FactorDroppedClasses:  10,
	FactorFinancial:       15,
}

// Evaluate computes the scored risk-factor flags from a feature vector.
func Evaluate(v features.Vector) map[string]bool {
	return map[string]bool{
		FactorLowGPA:          v.AvgGPA < 6.0,
		FactorFailedSubjects:  v.FailedSubjects > 0,
		FactorAcademicWarning: v.PreviousAcademicWarning > 0,
		FactorPoorAttendance:  v.AttendanceRate < 80,
		FactorDisciplinary:    DisciplinaryIssues(v),
		FactorDroppedClasses:  v.DroppedClasses > 0,
		FactorFinancial:       v.FamilyIncomeLevel < 2 && v.ScholarshipStatus == 0,
	}
}

// DisciplinaryIssues is the canonical disciplinary predicate: any severe
// violation, more than one moderate, or more than two minor.
func DisciplinaryIssues(v features.Vector) bool {
	return v.SevereViolations > 0 || v.ModerateViolations > 1 || v.MinorViolations > 2
}

// DecliningPerformance flags a falling grade or attendance trend. It is
// reported by the ensemble explainer but never scored.
func DecliningPerformance(v features.Vector) bool {
	return v.GradeTrend < -0.5 || v.AttendanceTrend < -0.1
}

// Score computes the rule-based risk percentage and the flags behind it.
// Each active flag contributes its fixed weight; the percentage is the active
// share of the total weight, floored by academic status (suspended 80,
// probation 60, warning 40) and clamped to [0,100]. Deterministic: the same
// vector always yields the same outcome.
func Score(v features.Vector) (float64, map[string]bool) {
	flags := Evaluate(v)

	totalWeight := 0
	for _, w := range Weights {
		totalWeight += w
	}
	active := 0
	for factor, on := range flags {
		if on {
			active += Weights[factor]
		}
	}
	pct := float64(active) / float64(totalWeight) * 100

	switch v.AcademicStatus {
	case 3: // suspended
		pct = max(80, pct)
	case 2: // probation
		pct = max(60, pct)
	case 1: // warning
		pct = max(40, pct)
	}

	return min(pct, 100), flags
}
