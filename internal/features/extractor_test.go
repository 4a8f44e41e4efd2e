package features

import (
	"context"
	"math"
	"testing"
	"time"

	"edurisk/internal/records"
	"edurisk/internal/records/memory"
)

// recordingTracker is a MetricsTracker capturing extractor reporting.
type recordingTracker struct {
	Fallbacks        int
	DurationInvoked  bool
	LastDuration     time.Duration
}

func (r *recordingTracker) ExtractionFallbacksInc() { r.Fallbacks++ }

func (r *recordingTracker) ExtractionDuration(d time.Duration) {
	r.DurationInvoked = true
	r.LastDuration = d
}

func gpa(v float64) *float64 { return &v }

func TestExtractUnknownStudentReturnsDefaults(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	tracker := &recordingTracker{}
	e := NewExtractorWithMetrics(store, tracker)

	v := e.Extract(context.Background(), 404)

	if v != Default() {
		t.Errorf("Expected default vector for unknown student, got %+v", v)
	}
	if tracker.Fallbacks != 1 {
		t.Errorf("Expected 1 fallback, got %d", tracker.Fallbacks)
	}
	if !tracker.DurationInvoked {
		t.Error("ExtractionDuration should be invoked even on fallback")
	}
}

func TestExtractFullHistory(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddStudent(records.Student{
		ID:                       1,
		AcademicStatus:           records.StatusProbation,
		FamilyIncomeLevel:        records.IncomeLow,
		ScholarshipStatus:        records.ScholarshipPartial,
		PreviousAcademicWarnings: 2,
	})
	store.AddGrade(records.Grade{StudentID: 1, SubjectID: 1, GPA: gpa(8.0)})
	store.AddGrade(records.Grade{StudentID: 1, SubjectID: 2, GPA: gpa(4.0)})
	store.AddGrade(records.Grade{StudentID: 1, SubjectID: 3, GPA: nil})

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	statuses := []records.AttendanceStatus{
		records.AttendancePresent,
		records.AttendancePresent,
		records.AttendancePresent,
		records.AttendanceAbsent,
	}
	for i, s := range statuses {
		store.AddAttendance(records.AttendanceEntry{StudentID: 1, Date: base.AddDate(0, 0, i), Status: s})
	}

	store.AddDisciplinary(records.DisciplinaryEntry{StudentID: 1, Severity: records.SeverityMinor})
	store.AddDisciplinary(records.DisciplinaryEntry{StudentID: 1, Severity: records.SeverityMinor})
	store.AddDisciplinary(records.DisciplinaryEntry{StudentID: 1, Severity: records.SeveritySevere})

	store.AddEnrollment(records.EnrollmentEntry{StudentID: 1, ClassID: 10, Status: records.EnrollmentActive})
	store.AddEnrollment(records.EnrollmentEntry{StudentID: 1, ClassID: 11, Status: records.EnrollmentDropped})

	v := NewExtractor(store).Extract(context.Background(), 1)

	if v.AcademicStatus != 2 {
		t.Errorf("Expected academic status 2 (probation), got %d", v.AcademicStatus)
	}
	if v.FamilyIncomeLevel != 1 {
		t.Errorf("Expected income level 1 (low), got %d", v.FamilyIncomeLevel)
	}
	if v.ScholarshipStatus != 1 {
		t.Errorf("Expected scholarship 1 (partial), got %d", v.ScholarshipStatus)
	}
	if v.PreviousAcademicWarning != 2 {
		t.Errorf("Expected 2 previous warnings, got %d", v.PreviousAcademicWarning)
	}
	if math.Abs(v.AvgGPA-6.0) > 1e-9 {
		t.Errorf("Expected avg GPA 6.0 over graded subjects, got %.4f", v.AvgGPA)
	}
	if v.FailedSubjects != 1 {
		t.Errorf("Expected 1 failed subject, got %d", v.FailedSubjects)
	}
	if v.TotalSubjects != 3 {
		t.Errorf("Expected 3 total subjects, got %d", v.TotalSubjects)
	}
	// Newest usable GPA is 4.0, oldest of the recent window 8.0, 2 usable values.
	if math.Abs(v.GradeTrend-(-2.0)) > 1e-9 {
		t.Errorf("Expected grade trend -2.0, got %.4f", v.GradeTrend)
	}
	if math.Abs(v.AttendanceRate-75.0) > 1e-9 {
		t.Errorf("Expected attendance rate 75, got %.4f", v.AttendanceRate)
	}
	if v.AttendanceTrend != 0 {
		t.Errorf("Expected no attendance trend below 10 rows, got %.4f", v.AttendanceTrend)
	}
	if v.MinorViolations != 2 || v.ModerateViolations != 0 || v.SevereViolations != 1 {
		t.Errorf("Expected violations 2/0/1, got %d/%d/%d", v.MinorViolations, v.ModerateViolations, v.SevereViolations)
	}
	if v.DroppedClasses != 1 {
		t.Errorf("Expected 1 dropped class, got %d", v.DroppedClasses)
	}
	if v.SemesterCount != 2 {
		t.Errorf("Expected 2 distinct classes, got %d", v.SemesterCount)
	}
}

func TestExtractNoHistoryUsesNeutralDefaults(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddStudent(records.Student{
		ID:                1,
		AcademicStatus:    records.StatusGood,
		FamilyIncomeLevel: records.IncomeMedium,
		ScholarshipStatus: records.ScholarshipNone,
	})

	v := NewExtractor(store).Extract(context.Background(), 1)

	if v.AttendanceRate != 100 {
		t.Errorf("Expected attendance 100 with no rows, got %.1f", v.AttendanceRate)
	}
	if v.AvgGPA != 0 || v.TotalSubjects != 0 {
		t.Errorf("Expected zero grade stats, got gpa=%.2f total=%d", v.AvgGPA, v.TotalSubjects)
	}
	if v.SemesterCount != 1 {
		t.Errorf("Expected semester count 1 with no enrollments, got %d", v.SemesterCount)
	}
}

func TestExtractUnknownIncomeDefaultsToMedium(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	store.AddStudent(records.Student{ID: 1, FamilyIncomeLevel: records.IncomeLevel("unspecified")})

	v := NewExtractor(store).Extract(context.Background(), 1)
	if v.FamilyIncomeLevel != 2 {
		t.Errorf("Expected unknown income to encode as 2, got %d", v.FamilyIncomeLevel)
	}
}

func TestAttendanceTrend(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	var rows []records.AttendanceEntry
	// Older block: 10 days fully present.
	for i := 0; i < 10; i++ {
		rows = append(rows, records.AttendanceEntry{Date: base.AddDate(0, 0, i), Status: records.AttendancePresent})
	}
	// Recent block: half present.
	for i := 10; i < 20; i++ {
		status := records.AttendancePresent
		if i%2 == 0 {
			status = records.AttendanceAbsent
		}
		rows = append(rows, records.AttendanceEntry{Date: base.AddDate(0, 0, i), Status: status})
	}

	trend := attendanceTrend(rows)
	if math.Abs(trend-(-0.5)) > 1e-9 {
		t.Errorf("Expected trend -0.5, got %.4f", trend)
	}

	if got := attendanceTrend(rows[:9]); got != 0 {
		t.Errorf("Expected zero trend below 10 rows, got %.4f", got)
	}
}

func TestGradeTrendRequiresTwoUsableValues(t *testing.T) {
	t.Parallel()

	grades := []records.Grade{
		{ID: 1, GPA: gpa(7.0)},
		{ID: 2, GPA: nil},
	}
	if got := gradeTrend(grades); got != 0 {
		t.Errorf("Expected 0 with a single usable GPA, got %.4f", got)
	}
	if got := gradeTrend(nil); got != 0 {
		t.Errorf("Expected 0 with no grades, got %.4f", got)
	}
}

func TestGradeTrendUsesThreeNewestRows(t *testing.T) {
	t.Parallel()

	grades := []records.Grade{
		{ID: 1, GPA: gpa(9.0)}, // outside the recency window
		{ID: 2, GPA: gpa(8.0)},
		{ID: 3, GPA: gpa(7.0)},
		{ID: 4, GPA: gpa(5.0)},
	}
	// Window is rows 4,3,2: (5.0 - 8.0) / 3.
	want := -1.0
	if got := gradeTrend(grades); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected trend %.4f, got %.4f", want, got)
	}
}

func TestVectorValuesFollowCanonicalOrder(t *testing.T) {
	t.Parallel()

	if len(Names) != Count {
		t.Fatalf("Names has %d entries, want %d", len(Names), Count)
	}

	v := Vector{
		AttendanceRate: 81, AvgGPA: 6.5, FailedSubjects: 1, TotalSubjects: 5,
		MinorViolations: 2, ModerateViolations: 1, SevereViolations: 0,
		AcademicStatus: 1, FamilyIncomeLevel: 3, ScholarshipStatus: 2,
		PreviousAcademicWarning: 1, DroppedClasses: 1, SemesterCount: 4,
		GradeTrend: -0.25, AttendanceTrend: 0.1,
	}
	vals := v.Values()
	if len(vals) != Count {
		t.Fatalf("Values has %d entries, want %d", len(vals), Count)
	}

	named := v.Named()
	for i, name := range Names {
		if named[name] != vals[i] {
			t.Errorf("Feature %s: Named()=%.4f, Values()[%d]=%.4f", name, named[name], i, vals[i])
		}
	}
	if vals[0] != 81 || vals[1] != 6.5 || vals[14] != 0.1 {
		t.Errorf("Canonical ordering broken: got first=%v second=%v last=%v", vals[0], vals[1], vals[14])
	}
}
