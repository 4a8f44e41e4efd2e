package risk

import (
	"context"
	"fmt"
	"time"

	"edurisk/internal/features"
	"edurisk/internal/records"

	"github.com/rs/zerolog/log"
)

// Service is the rule-based scoring path: extract, score, append an
// assessment. It needs no trained model and is always available.
type Service struct {
	source    records.Source
	extractor *features.Extractor
	store     records.AssessmentStore
}

// NewService creates a rule-based scoring service. store may be nil, in which
// case assessments are not persisted.
func NewService(source records.Source, extractor *features.Extractor, store records.AssessmentStore) *Service {
	return &Service{source: source, extractor: extractor, store: store}
}

// Assess scores one student with the rule-based scorer and appends the
// assessment. Unknown students propagate records.ErrStudentNotFound.
// A persistence failure is logged and the computed result still returned,
// with an empty AssessmentID.
func (s *Service) Assess(ctx context.Context, studentID int64) (*Result, error) {
	if _, err := s.source.Student(ctx, studentID); err != nil {
		return nil, fmt.Errorf("assess student %d: %w", studentID, err)
	}

	v := s.extractor.Extract(ctx, studentID)
	pct, flags := Score(v)

	res := &Result{
		StudentID:       studentID,
		RiskPercentage:  pct,
		RiskLevel:       Level(pct),
		RiskFactors:     flags,
		Recommendations: Recommendations(flags),
		AnalysisDate:    time.Now().UTC(),
	}

	if s.store != nil {
		stored, err := s.store.Record(ctx, studentID, pct, flags)
		if err != nil {
			log.Warn().Err(err).Int64("student_id", studentID).Msg("failed to persist rule-based assessment")
		} else {
			res.AssessmentID = stored.ID
			res.AnalysisDate = stored.AnalysisDate
		}
	}

	return res, nil
}

// AssessAll scores every student in the population, skipping students that
// cannot be scored and logging the failure.
func (s *Service) AssessAll(ctx context.Context) ([]*Result, error) {
	ids, err := s.source.StudentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	results := make([]*Result, 0, len(ids))
	for _, id := range ids {
		res, err := s.Assess(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int64("student_id", id).Msg("rule-based assessment failed, skipping student")
			continue
		}
		results = append(results, res)
	}
	return results, nil
}
