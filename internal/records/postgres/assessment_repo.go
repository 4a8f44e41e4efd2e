package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"edurisk/internal/records"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AssessmentRepository implements records.AssessmentStore for PostgreSQL.
// The dropout_risks table is append-only: Record always inserts and the
// latest assessment is resolved by sorting on analysis_date, never by a
// separate current-row pointer.
type AssessmentRepository struct {
	conn *Connection
}

// NewAssessmentRepository creates a new AssessmentRepository.
func NewAssessmentRepository(conn *Connection) *AssessmentRepository {
	return &AssessmentRepository{conn: conn}
}

// Record appends a new assessment row and returns it.
func (r *AssessmentRepository) Record(ctx context.Context, studentID int64, riskPercentage float64, riskFactors map[string]bool) (*records.RiskAssessment, error) {
	factorsJSON, err := json.Marshal(riskFactors)
	if err != nil {
		return nil, fmt.Errorf("marshal risk factors: %w", err)
	}

	a := records.RiskAssessment{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		RiskPercentage: riskPercentage,
		RiskFactors:    riskFactors,
		AnalysisDate:   time.Now().UTC(),
	}

	query := `
		INSERT INTO dropout_risks (risk_id, student_id, risk_percentage, risk_factors, analysis_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	if err := r.conn.Exec(ctx, query, a.ID, a.StudentID, a.RiskPercentage, factorsJSON, a.AnalysisDate); err != nil {
		return nil, fmt.Errorf("insert assessment for student %d: %w", studentID, err)
	}
	return &a, nil
}

// Latest returns the newest assessment for a student, or
// records.ErrNoAssessment when none exists.
func (r *AssessmentRepository) Latest(ctx context.Context, studentID int64) (*records.RiskAssessment, error) {
	query := `
		SELECT risk_id, student_id, risk_percentage, risk_factors, analysis_date
		FROM dropout_risks
		WHERE student_id = $1
		ORDER BY analysis_date DESC
		LIMIT 1
	`
	a, err := r.scanAssessment(r.conn.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, records.ErrNoAssessment
		}
		return nil, fmt.Errorf("query latest assessment for student %d: %w", studentID, err)
	}
	return a, nil
}

// ByStudent returns a student's full assessment history, newest first.
func (r *AssessmentRepository) ByStudent(ctx context.Context, studentID int64) ([]records.RiskAssessment, error) {
	query := `
		SELECT risk_id, student_id, risk_percentage, risk_factors, analysis_date
		FROM dropout_risks
		WHERE student_id = $1
		ORDER BY analysis_date DESC
	`
	rows, err := r.conn.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query assessments for student %d: %w", studentID, err)
	}
	defer rows.Close()

	var out []records.RiskAssessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assessment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *AssessmentRepository) scanAssessment(row pgx.Row) (*records.RiskAssessment, error) {
	var (
		a           records.RiskAssessment
		factorsJSON []byte
	)
	if err := row.Scan(&a.ID, &a.StudentID, &a.RiskPercentage, &factorsJSON, &a.AnalysisDate); err != nil {
		return nil, err
	}
	if len(factorsJSON) > 0 {
		if err := json.Unmarshal(factorsJSON, &a.RiskFactors); err != nil {
			return nil, fmt.Errorf("unmarshal risk factors: %w", err)
		}
	}
	return &a, nil
}
