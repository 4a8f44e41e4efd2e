package features

import (
	"context"
	"sort"
	"time"

	"edurisk/internal/records"

	"github.com/rs/zerolog/log"
)

// MetricsTracker defines the metrics methods the extractor reports to.
type MetricsTracker interface {
	ExtractionFallbacksInc()
	ExtractionDuration(time.Duration)
}

// Ordinal encodings for the categorical student attributes. Unknown values
// fall back to a neutral code instead of failing: status to good, income to
// medium, scholarship to none.
var (
	academicStatusCodes = map[records.AcademicStatus]int{
		records.StatusGood:      0,
		records.StatusWarning:   1,
		records.StatusProbation: 2,
		records.StatusSuspended: 3,
	}
	incomeLevelCodes = map[records.IncomeLevel]int{
		records.IncomeVeryLow:  0,
		records.IncomeLow:      1,
		records.IncomeMedium:   2,
		records.IncomeHigh:     3,
		records.IncomeVeryHigh: 4,
	}
	scholarshipCodes = map[records.ScholarshipStatus]int{
		records.ScholarshipNone:    0,
		records.ScholarshipPartial: 1,
		records.ScholarshipFull:    2,
	}
)

// Extractor builds feature vectors from a records.Source.
type Extractor struct {
	src     records.Source
	metrics MetricsTracker
}

// NewExtractor creates an extractor without metrics reporting.
func NewExtractor(src records.Source) *Extractor {
	return &Extractor{src: src}
}

// NewExtractorWithMetrics creates an extractor that reports fallbacks and
// timing to the given tracker.
func NewExtractorWithMetrics(src records.Source, metrics MetricsTracker) *Extractor {
	return &Extractor{src: src, metrics: metrics}
}

// Extract builds the feature vector for one student. It never fails: when the
// student cannot be read at all the full default vector is returned, and when
// a single history collection cannot be read only that group of features
// degrades to its defaults. Faults are logged and counted, not surfaced.
func (e *Extractor) Extract(ctx context.Context, studentID int64) Vector {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ExtractionDuration(time.Since(start))
		}
	}()

	student, err := e.src.Student(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("student lookup failed, using default feature vector")
		e.fallback()
		return Default()
	}

	v := Vector{SemesterCount: 1}

	v.AcademicStatus = academicStatusCodes[student.AcademicStatus]
	v.ScholarshipStatus = scholarshipCodes[student.ScholarshipStatus]
	v.PreviousAcademicWarning = student.PreviousAcademicWarnings
	if code, ok := incomeLevelCodes[student.FamilyIncomeLevel]; ok {
		v.FamilyIncomeLevel = code
	} else {
		v.FamilyIncomeLevel = 2
	}

	attendance, err := e.src.Attendance(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("attendance read failed, defaulting attendance features")
		e.fallback()
		attendance = nil
	}
	v.AttendanceRate = attendanceRate(attendance)
	v.AttendanceTrend = attendanceTrend(attendance)

	grades, err := e.src.Grades(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("grades read failed, defaulting grade features")
		e.fallback()
		grades = nil
	}
	v.AvgGPA, v.FailedSubjects, v.TotalSubjects = gradeStats(grades)
	v.GradeTrend = gradeTrend(grades)

	disciplinary, err := e.src.Disciplinary(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("disciplinary read failed, defaulting violation counts")
		e.fallback()
		disciplinary = nil
	}
	for _, d := range disciplinary {
		switch d.Severity {
		case records.SeverityMinor:
			v.MinorViolations++
		case records.SeverityModerate:
			v.ModerateViolations++
		case records.SeveritySevere:
			v.SevereViolations++
		}
	}

	enrollments, err := e.src.Enrollments(ctx, studentID)
	if err != nil {
		log.Warn().Err(err).Int64("student_id", studentID).Msg("enrollments read failed, defaulting enrollment features")
		e.fallback()
		enrollments = nil
	}
	if len(enrollments) > 0 {
		classes := make(map[int64]struct{})
		for _, en := range enrollments {
			if en.Status == records.EnrollmentDropped {
				v.DroppedClasses++
			}
			classes[en.ClassID] = struct{}{}
		}
		v.SemesterCount = len(classes)
	}

	return v
}

func (e *Extractor) fallback() {
	if e.metrics != nil {
		e.metrics.ExtractionFallbacksInc()
	}
}

// attendanceRate is the percentage of rows marked present, defaulting to 100
// when the student has no attendance history at all.
func attendanceRate(rows []records.AttendanceEntry) float64 {
	if len(rows) == 0 {
		return 100
	}
	present := 0
	for _, r := range rows {
		if r.Status == records.AttendancePresent {
			present++
		}
	}
	return float64(present) / float64(len(rows)) * 100
}

// attendanceTrend compares the most recent block of attendance rows against
// the preceding block of equal size. It requires at least 10 rows; each block
// holds min(30, total/2) rows. Positive means attendance is improving.
func attendanceTrend(rows []records.AttendanceEntry) float64 {
	total := len(rows)
	if total < 10 {
		return 0
	}

	byDateDesc := make([]records.AttendanceEntry, total)
	copy(byDateDesc, rows)
	sort.SliceStable(byDateDesc, func(i, j int) bool {
		return byDateDesc[i].Date.After(byDateDesc[j].Date)
	})

	window := total / 2
	if window > 30 {
		window = 30
	}
	recent := byDateDesc[:window]
	previous := byDateDesc[window : 2*window]
	if len(recent) == 0 || len(previous) == 0 {
		return 0
	}
	return presentRate(recent) - presentRate(previous)
}

func presentRate(rows []records.AttendanceEntry) float64 {
	present := 0
	for _, r := range rows {
		if r.Status == records.AttendancePresent {
			present++
		}
	}
	return float64(present) / float64(len(rows))
}

// gradeStats returns the mean of non-nil GPA values, the count of those below
// the 5.0 passing line, and the total number of grade rows.
func gradeStats(grades []records.Grade) (avgGPA float64, failed, total int) {
	total = len(grades)
	if total == 0 {
		return 0, 0, 0
	}
	var sum float64
	valid := 0
	for _, g := range grades {
		if g.GPA == nil {
			continue
		}
		sum += *g.GPA
		valid++
		if *g.GPA < 5.0 {
			failed++
		}
	}
	if valid == 0 {
		return 0, 0, total
	}
	return sum / float64(valid), failed, total
}

// gradeTrend compares the newest of the 3 most recently recorded usable GPA
// values against the oldest of that subset, divided by how many were usable.
// Returns 0 with fewer than 2 usable values. Recency follows insertion order
// (row ID), matching how grades are entered over the term.
func gradeTrend(grades []records.Grade) float64 {
	if len(grades) < 2 {
		return 0
	}
	byIDDesc := make([]records.Grade, len(grades))
	copy(byIDDesc, grades)
	sort.SliceStable(byIDDesc, func(i, j int) bool {
		return byIDDesc[i].ID > byIDDesc[j].ID
	})

	recent := byIDDesc
	if len(recent) > 3 {
		recent = recent[:3]
	}
	var gpas []float64
	for _, g := range recent {
		if g.GPA != nil {
			gpas = append(gpas, *g.GPA)
		}
	}
	if len(gpas) < 2 {
		return 0
	}
	return (gpas[0] - gpas[len(gpas)-1]) / float64(len(gpas))
}
