package postgres

import (
	"context"
	"errors"
	"fmt"

	"edurisk/internal/records"

	"github.com/jackc/pgx/v5"
)

// StudentRepository implements records.Source for PostgreSQL.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

// Student returns one student's demographic and standing attributes.
func (r *StudentRepository) Student(ctx context.Context, studentID int64) (*records.Student, error) {
	query := `
		SELECT student_id, student_code, first_name, last_name, class_id,
		       academic_status, family_income_level, scholarship_status,
		       previous_academic_warning
		FROM students
		WHERE student_id = $1
	`

	var s records.Student
	err := r.conn.QueryRow(ctx, query, studentID).Scan(
		&s.ID,
		&s.Code,
		&s.FirstName,
		&s.LastName,
		&s.ClassID,
		&s.AcademicStatus,
		&s.FamilyIncomeLevel,
		&s.ScholarshipStatus,
		&s.PreviousAcademicWarnings,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, records.ErrStudentNotFound
		}
		return nil, fmt.Errorf("query student %d: %w", studentID, err)
	}
	return &s, nil
}

// StudentIDs returns every student identifier in ascending order.
func (r *StudentRepository) StudentIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.conn.Query(ctx, `SELECT student_id FROM students ORDER BY student_id`)
	if err != nil {
		return nil, fmt.Errorf("query student ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Grades returns a student's grade rows in insertion order.
func (r *StudentRepository) Grades(ctx context.Context, studentID int64) ([]records.Grade, error) {
	query := `
		SELECT grade_id, student_id, subject_id, assignment_score, midterm_score, final_score, gpa
		FROM grades
		WHERE student_id = $1
		ORDER BY grade_id
	`
	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query grades for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var grades []records.Grade
	for rows.Next() {
		var g records.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.Assignment, &g.Midterm, &g.Final, &g.GPA); err != nil {
			return nil, fmt.Errorf("scan grade: %w", err)
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// Attendance returns a student's attendance rows in insertion order.
func (r *StudentRepository) Attendance(ctx context.Context, studentID int64) ([]records.AttendanceEntry, error) {
	query := `
		SELECT attendance_id, student_id, date, status
		FROM attendance
		WHERE student_id = $1
		ORDER BY attendance_id
	`
	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query attendance for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var entries []records.AttendanceEntry
	for rows.Next() {
		var a records.AttendanceEntry
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Date, &a.Status); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// Disciplinary returns a student's disciplinary rows in insertion order.
func (r *StudentRepository) Disciplinary(ctx context.Context, studentID int64) ([]records.DisciplinaryEntry, error) {
	query := `
		SELECT record_id, student_id, violation_date, severity_level
		FROM disciplinary_records
		WHERE student_id = $1
		ORDER BY record_id
	`
	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query disciplinary records for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var entries []records.DisciplinaryEntry
	for rows.Next() {
		var d records.DisciplinaryEntry
		if err := rows.Scan(&d.ID, &d.StudentID, &d.Date, &d.Severity); err != nil {
			return nil, fmt.Errorf("scan disciplinary record: %w", err)
		}
		entries = append(entries, d)
	}
	return entries, rows.Err()
}

// Enrollments returns a student's class-membership rows in insertion order.
func (r *StudentRepository) Enrollments(ctx context.Context, studentID int64) ([]records.EnrollmentEntry, error) {
	query := `
		SELECT id, student_id, class_id, status
		FROM class_students
		WHERE student_id = $1
		ORDER BY id
	`
	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query enrollments for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var entries []records.EnrollmentEntry
	for rows.Next() {
		var e records.EnrollmentEntry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ClassID, &e.Status); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ClassStudentIDs returns the identifiers of students assigned to a class.
func (r *StudentRepository) ClassStudentIDs(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := r.conn.Query(ctx, `SELECT student_id FROM students WHERE class_id = $1 ORDER BY student_id`, classID)
	if err != nil {
		return nil, fmt.Errorf("query class %d roster: %w", classID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan student id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
