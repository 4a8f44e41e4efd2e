package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edurisk/internal/records"

	"github.com/rs/zerolog/log"
)

// TTLLatestAssessment bounds staleness when a write-through update is lost.
const TTLLatestAssessment = 10 * time.Minute

func latestKey(studentID int64) string {
	return fmt.Sprintf("assessment:latest:%d", studentID)
}

// CachedAssessments decorates a records.AssessmentStore with a Redis cache
// of each student's latest assessment. Cache failures are logged and never
// surfaced: the backing store remains the source of truth.
type CachedAssessments struct {
	store records.AssessmentStore
	cache *Cache
}

// NewCachedAssessments wraps store with cache.
func NewCachedAssessments(store records.AssessmentStore, cache *Cache) *CachedAssessments {
	return &CachedAssessments{store: store, cache: cache}
}

// Record appends via the backing store and refreshes the latest-assessment
// key for the student.
func (c *CachedAssessments) Record(ctx context.Context, studentID int64, riskPercentage float64, riskFactors map[string]bool) (*records.RiskAssessment, error) {
	a, err := c.store.Record(ctx, studentID, riskPercentage, riskFactors)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, latestKey(studentID), a, TTLLatestAssessment); err != nil {
		log.Warn().Err(err).Int64("studentID", studentID).Msg("failed to cache latest assessment")
	}
	return a, nil
}

// Latest serves from cache when possible, falling back to the backing store
// and repopulating the key on a miss.
func (c *CachedAssessments) Latest(ctx context.Context, studentID int64) (*records.RiskAssessment, error) {
	var cached records.RiskAssessment
	err := c.cache.Get(ctx, latestKey(studentID), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Int64("studentID", studentID).Msg("assessment cache read failed")
	}

	a, err := c.store.Latest(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, latestKey(studentID), a, TTLLatestAssessment); err != nil {
		log.Warn().Err(err).Int64("studentID", studentID).Msg("failed to cache latest assessment")
	}
	return a, nil
}

// ByStudent always reads the full history from the backing store.
func (c *CachedAssessments) ByStudent(ctx context.Context, studentID int64) ([]records.RiskAssessment, error) {
	return c.store.ByStudent(ctx, studentID)
}
