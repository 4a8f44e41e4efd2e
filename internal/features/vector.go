// Package features converts a student's stored history into the fixed-order
// numeric vector used by both the rule-based scorer and the trained models.
// Extraction is total: any data-access fault degrades the affected fields to
// documented defaults instead of failing the pipeline.
package features

// Names lists the vector components in their canonical order. Training and
// inference must use this exact order; Values() emits it.
var Names = []string{
	"attendance_rate",
	"avg_gpa",
	"failed_subjects",
	"total_subjects",
	"minor_violations",
	"moderate_violations",
	"severe_violations",
	"academic_status",
	"family_income_level",
	"scholarship_status",
	"previous_academic_warning",
	"dropped_classes",
	"semester_count",
	"grade_trend",
	"attendance_trend",
}

// Count is the number of features in a Vector.
const Count = 15

// Vector is the fixed-length feature encoding of one student.
type Vector struct {
	AttendanceRate          float64 // percent present, [0,100]
	AvgGPA                  float64 // mean GPA on a 0-10 scale
	FailedSubjects          int     // subjects with GPA < 5.0
	TotalSubjects           int
	MinorViolations         int
	ModerateViolations      int
	SevereViolations        int
	AcademicStatus          int // ordinal 0-3: good/warning/probation/suspended
	FamilyIncomeLevel       int // ordinal 0-4: very_low..very_high
	ScholarshipStatus       int // ordinal 0-2: none/partial/full
	PreviousAcademicWarning int
	DroppedClasses          int
	SemesterCount           int     // distinct classes ever enrolled in, >= 1
	GradeTrend              float64 // recent-minus-earlier GPA delta
	AttendanceTrend         float64 // recent-minus-earlier presence-rate delta
}

// Default returns the fully-defaulted vector used when a student's history is
// entirely unavailable: perfect attendance, zero grades, no violations, good
// standing, medium income, no scholarship, one semester, flat trends.
func Default() Vector {
	return Vector{
		AttendanceRate:    100,
		FamilyIncomeLevel: 2,
		SemesterCount:     1,
	}
}

// Values returns the vector components in the order of Names.
func (v Vector) Values() []float64 {
	return []float64{
		v.AttendanceRate,
		v.AvgGPA,
		float64(v.FailedSubjects),
		float64(v.TotalSubjects),
		float64(v.MinorViolations),
		float64(v.ModerateViolations),
		float64(v.SevereViolations),
		float64(v.AcademicStatus),
		float64(v.FamilyIncomeLevel),
		float64(v.ScholarshipStatus),
		float64(v.PreviousAcademicWarning),
		float64(v.DroppedClasses),
		float64(v.SemesterCount),
		v.GradeTrend,
		v.AttendanceTrend,
	}
}

// Named returns the vector as a name-to-value map, in no particular order.
func (v Vector) Named() map[string]float64 {
	vals := v.Values()
	m := make(map[string]float64, Count)
	for i, name := range Names {
		m[name] = vals[i]
	}
	return m
}
