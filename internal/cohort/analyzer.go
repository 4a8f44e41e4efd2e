// Package cohort aggregates per-student risk assessments into class-level
// summaries for advisors: risk bucket counts, the class average, and a roster
// of the students needing attention first.
package cohort

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"edurisk/internal/records"
	"edurisk/internal/risk"

	"github.com/rs/zerolog/log"
)

// Bucket thresholds for class-level triage. These are intentionally stricter
// than the five display levels: a class summary only distinguishes who needs
// intervention now (high), who needs watching (medium), and everyone else.
const (
	highRiskThreshold   = 75.0
	mediumRiskThreshold = 50.0
)

// Roster resolves class membership.
type Roster interface {
	ClassStudentIDs(ctx context.Context, classID int64) ([]int64, error)
}

// StudentRisk is one student's standing inside a class summary.
type StudentRisk struct {
	StudentID      int64     `json:"student_id"`
	RiskPercentage float64   `json:"risk_percentage"`
	RiskLevel      string    `json:"risk_level"`
	TopFactors     []string  `json:"top_factors,omitempty"`
	AnalysisDate   time.Time `json:"analysis_date"`
}

// Summary aggregates the latest assessments of a class.
type Summary struct {
	ClassID          int64         `json:"class_id"`
	TotalStudents    int           `json:"total_students"`
	AssessedStudents int           `json:"assessed_students"`
	HighRisk         int           `json:"high_risk"`
	MediumRisk       int           `json:"medium_risk"`
	LowRisk          int           `json:"low_risk"`
	AverageRisk      float64       `json:"average_risk"`
	HighRiskStudents []StudentRisk `json:"high_risk_students,omitempty"`
	GeneratedAt      time.Time     `json:"generated_at"`
}

// Analyzer builds class summaries from the latest stored assessments. It
// never triggers new scoring: students without an assessment are counted as
// unassessed and excluded from the average.
type Analyzer struct {
	roster      Roster
	assessments records.AssessmentStore
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(roster Roster, assessments records.AssessmentStore) *Analyzer {
	return &Analyzer{roster: roster, assessments: assessments}
}

// Summarize aggregates the latest assessment of every student in a class.
func (a *Analyzer) Summarize(ctx context.Context, classID int64) (*Summary, error) {
	ids, err := a.roster.ClassStudentIDs(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("resolve class %d roster: %w", classID, err)
	}

	s := &Summary{
		ClassID:       classID,
		TotalStudents: len(ids),
		GeneratedAt:   time.Now().UTC(),
	}

	var sum float64
	for _, id := range ids {
		latest, err := a.assessments.Latest(ctx, id)
		if err != nil {
			if errors.Is(err, records.ErrNoAssessment) {
				continue
			}
			log.Warn().Err(err).Int64("studentID", id).Msg("failed to load latest assessment")
			continue
		}

		s.AssessedStudents++
		sum += latest.RiskPercentage

		switch {
		case latest.RiskPercentage >= highRiskThreshold:
			s.HighRisk++
			s.HighRiskStudents = append(s.HighRiskStudents, StudentRisk{
				StudentID:      id,
				RiskPercentage: latest.RiskPercentage,
				RiskLevel:      risk.Level(latest.RiskPercentage),
				TopFactors:     topFactors(latest.RiskFactors, 3),
				AnalysisDate:   latest.AnalysisDate,
			})
		case latest.RiskPercentage >= mediumRiskThreshold:
			s.MediumRisk++
		default:
			s.LowRisk++
		}
	}

	if s.AssessedStudents > 0 {
		s.AverageRisk = sum / float64(s.AssessedStudents)
	}
	sort.Slice(s.HighRiskStudents, func(i, j int) bool {
		return s.HighRiskStudents[i].RiskPercentage > s.HighRiskStudents[j].RiskPercentage
	})
	return s, nil
}

// topFactors returns up to n active factor names, heaviest weight first.
// Unweighted factors (explanatory flags) sort last, alphabetically.
func topFactors(flags map[string]bool, n int) []string {
	var active []string
	for name, on := range flags {
		if on {
			active = append(active, name)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		wi, wj := risk.Weights[active[i]], risk.Weights[active[j]]
		if wi != wj {
			return wi > wj
		}
		return active[i] < active[j]
	})
	if len(active) > n {
		active = active[:n]
	}
	return active
}
