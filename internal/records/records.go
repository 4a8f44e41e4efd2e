// Package records defines the student data model consumed by the risk
// scoring subsystem and the contracts it expects from the surrounding
// data-access layer. The scorer reads student history through Source and
// appends its outcomes through AssessmentStore; it never mutates student
// data.
package records

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStudentNotFound indicates no student exists with the given identifier.
	ErrStudentNotFound = errors.New("records: student not found")

	// ErrNoAssessment indicates no risk assessment has been recorded for a student.
	ErrNoAssessment = errors.New("records: no assessment recorded")
)

// AcademicStatus is the student's current academic standing.
type AcademicStatus string

const (
	StatusGood      AcademicStatus = "good"
	StatusWarning   AcademicStatus = "warning"
	StatusProbation AcademicStatus = "probation"
	StatusSuspended AcademicStatus = "suspended"
)

// IncomeLevel is the reported family income bracket.
type IncomeLevel string

const (
	IncomeVeryLow  IncomeLevel = "very_low"
	IncomeLow      IncomeLevel = "low"
	IncomeMedium   IncomeLevel = "medium"
	IncomeHigh     IncomeLevel = "high"
	IncomeVeryHigh IncomeLevel = "very_high"
)

// ScholarshipStatus is the student's scholarship coverage.
type ScholarshipStatus string

const (
	ScholarshipNone    ScholarshipStatus = "none"
	ScholarshipPartial ScholarshipStatus = "partial"
	ScholarshipFull    ScholarshipStatus = "full"
)

// AttendanceStatus is the per-session attendance outcome.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// Severity is the disciplinary violation tier.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// EnrollmentStatus is the state of a class enrollment.
type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "enrolled"
	EnrollmentDropped   EnrollmentStatus = "dropped"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Student holds the demographic and standing attributes the scorer reads.
// History collections (grades, attendance, disciplinary, enrollments) are
// fetched separately through Source.
type Student struct {
	ID                       int64
	Code                     string
	FirstName                string
	LastName                 string
	ClassID                  int64
	AcademicStatus           AcademicStatus
	FamilyIncomeLevel        IncomeLevel
	ScholarshipStatus        ScholarshipStatus
	PreviousAcademicWarnings int
}

// Grade is one per-subject grade row. GPA is nullable: a nil GPA means the
// subject has not been fully graded yet and is skipped by averages.
type Grade struct {
	ID         int64
	StudentID  int64
	SubjectID  int64
	Assignment *float64
	Midterm    *float64
	Final      *float64
	GPA        *float64
}

// AttendanceEntry is one attendance-taking row.
type AttendanceEntry struct {
	ID        int64
	StudentID int64
	Date      time.Time
	Status    AttendanceStatus
}

// DisciplinaryEntry is one disciplinary record row.
type DisciplinaryEntry struct {
	ID        int64
	StudentID int64
	Date      time.Time
	Severity  Severity
}

// EnrollmentEntry is one class-membership row.
type EnrollmentEntry struct {
	ID        int64
	StudentID int64
	ClassID   int64
	Status    EnrollmentStatus
}

// RiskAssessment is one persisted scoring outcome. Assessments are
// append-only: every scoring call creates a new row and the current risk for
// a student is the row with the newest AnalysisDate.
type RiskAssessment struct {
	ID             string          `json:"id"`
	StudentID      int64           `json:"student_id"`
	RiskPercentage float64         `json:"risk_percentage"`
	RiskFactors    map[string]bool `json:"risk_factors"`
	AnalysisDate   time.Time       `json:"analysis_date"`
}

// Source provides read-only access to student history. Implementations must
// return ErrStudentNotFound from Student when the identifier is unknown.
// History collections are returned in insertion order (ascending row ID).
type Source interface {
	Student(ctx context.Context, studentID int64) (*Student, error)
	StudentIDs(ctx context.Context) ([]int64, error)
	Grades(ctx context.Context, studentID int64) ([]Grade, error)
	Attendance(ctx context.Context, studentID int64) ([]AttendanceEntry, error)
	Disciplinary(ctx context.Context, studentID int64) ([]DisciplinaryEntry, error)
	Enrollments(ctx context.Context, studentID int64) ([]EnrollmentEntry, error)
}

// AssessmentStore persists risk assessments. Record always appends a new row;
// previous assessments are never updated in place. Latest must resolve by
// sorting descending on AnalysisDate, returning ErrNoAssessment when the
// student has no history.
type AssessmentStore interface {
	Record(ctx context.Context, studentID int64, riskPercentage float64, riskFactors map[string]bool) (*RiskAssessment, error)
	Latest(ctx context.Context, studentID int64) (*RiskAssessment, error)
	ByStudent(ctx context.Context, studentID int64) ([]RiskAssessment, error)
}
