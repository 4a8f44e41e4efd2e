// Package memory provides an in-memory implementation of the records
// contracts, used by tests and dry runs. It mirrors the behavior of the
// relational layer: students keyed by identifier, history in insertion
// order, append-only assessments with latest-by-timestamp resolution.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"edurisk/internal/records"

	"github.com/google/uuid"
)

// Store is an in-memory records.Source and records.AssessmentStore.
type Store struct {
	mu           sync.RWMutex
	students     map[int64]records.Student
	grades       map[int64][]records.Grade
	attendance   map[int64][]records.AttendanceEntry
	disciplinary map[int64][]records.DisciplinaryEntry
	enrollments  map[int64][]records.EnrollmentEntry
	assessments  map[int64][]records.RiskAssessment
	nextRowID    int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		students:     make(map[int64]records.Student),
		grades:       make(map[int64][]records.Grade),
		attendance:   make(map[int64][]records.AttendanceEntry),
		disciplinary: make(map[int64][]records.DisciplinaryEntry),
		enrollments:  make(map[int64][]records.EnrollmentEntry),
		assessments:  make(map[int64][]records.RiskAssessment),
	}
}

// AddStudent inserts or replaces a student row.
func (s *Store) AddStudent(st records.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

// AddGrade appends a grade row, assigning it the next row ID when unset.
func (s *Store) AddGrade(g records.Grade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		s.nextRowID++
		g.ID = s.nextRowID
	}
	s.grades[g.StudentID] = append(s.grades[g.StudentID], g)
}

// AddAttendance appends an attendance row.
func (s *Store) AddAttendance(a records.AttendanceEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		s.nextRowID++
		a.ID = s.nextRowID
	}
	s.attendance[a.StudentID] = append(s.attendance[a.StudentID], a)
}

// AddDisciplinary appends a disciplinary row.
func (s *Store) AddDisciplinary(d records.DisciplinaryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		s.nextRowID++
		d.ID = s.nextRowID
	}
	s.disciplinary[d.StudentID] = append(s.disciplinary[d.StudentID], d)
}

// AddEnrollment appends an enrollment row.
func (s *Store) AddEnrollment(e records.EnrollmentEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextRowID++
		e.ID = s.nextRowID
	}
	s.enrollments[e.StudentID] = append(s.enrollments[e.StudentID], e)
}

// Student implements records.Source.
func (s *Store) Student(_ context.Context, studentID int64) (*records.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return nil, records.ErrStudentNotFound
	}
	return &st, nil
}

// StudentIDs implements records.Source, returning identifiers in ascending
// order.
func (s *Store) StudentIDs(_ context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.students))
	for id := range s.students {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Grades implements records.Source.
func (s *Store) Grades(_ context.Context, studentID int64) ([]records.Grade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]records.Grade(nil), s.grades[studentID]...), nil
}

// Attendance implements records.Source.
func (s *Store) Attendance(_ context.Context, studentID int64) ([]records.AttendanceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]records.AttendanceEntry(nil), s.attendance[studentID]...), nil
}

// Disciplinary implements records.Source.
func (s *Store) Disciplinary(_ context.Context, studentID int64) ([]records.DisciplinaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]records.DisciplinaryEntry(nil), s.disciplinary[studentID]...), nil
}

// Enrollments implements records.Source.
func (s *Store) Enrollments(_ context.Context, studentID int64) ([]records.EnrollmentEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]records.EnrollmentEntry(nil), s.enrollments[studentID]...), nil
}

// Record implements records.AssessmentStore: always appends a new row.
func (s *Store) Record(_ context.Context, studentID int64, riskPercentage float64, riskFactors map[string]bool) (*records.RiskAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[studentID]; !ok {
		return nil, records.ErrStudentNotFound
	}

	factors := make(map[string]bool, len(riskFactors))
	for k, v := range riskFactors {
		factors[k] = v
	}
	a := records.RiskAssessment{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		RiskPercentage: riskPercentage,
		RiskFactors:    factors,
		AnalysisDate:   time.Now().UTC(),
	}
	s.assessments[studentID] = append(s.assessments[studentID], a)
	return &a, nil
}

// Latest implements records.AssessmentStore: the newest row by AnalysisDate,
// with insertion order breaking timestamp ties.
func (s *Store) Latest(_ context.Context, studentID int64) (*records.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.assessments[studentID]
	if len(rows) == 0 {
		return nil, records.ErrNoAssessment
	}
	latest := rows[0]
	for _, r := range rows[1:] {
		if !r.AnalysisDate.Before(latest.AnalysisDate) {
			latest = r
		}
	}
	return &latest, nil
}

// ByStudent implements records.AssessmentStore, newest first.
func (s *Store) ByStudent(_ context.Context, studentID int64) ([]records.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := append([]records.RiskAssessment(nil), s.assessments[studentID]...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].AnalysisDate.After(rows[j].AnalysisDate) })
	return rows, nil
}

// ClassStudentIDs returns the identifiers of students assigned to a class,
// in ascending order.
func (s *Store) ClassStudentIDs(_ context.Context, classID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for id, st := range s.students {
		if st.ClassID == classID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
