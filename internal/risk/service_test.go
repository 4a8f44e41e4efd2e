package risk_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"edurisk/internal/features"
	"edurisk/internal/records"
	"edurisk/internal/records/memory"
	"edurisk/internal/risk"
)

func newFixtureStore() *memory.Store {
	store := memory.NewStore()
	store.AddStudent(records.Student{
		ID:                1,
		AcademicStatus:    records.StatusGood,
		FamilyIncomeLevel: records.IncomeMedium,
	})
	g := 4.0
	store.AddGrade(records.Grade{StudentID: 1, SubjectID: 1, GPA: &g})
	return store
}

func TestServiceAssessPersistsAssessment(t *testing.T) {
	t.Parallel()

	store := newFixtureStore()
	svc := risk.NewService(store, features.NewExtractor(store), store)

	res, err := svc.Assess(context.Background(), 1)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if res.AssessmentID == "" {
		t.Error("Expected a persisted assessment ID")
	}
	if res.RiskLevel != risk.Level(res.RiskPercentage) {
		t.Errorf("Level %s does not match percentage %.2f", res.RiskLevel, res.RiskPercentage)
	}
	if len(res.Recommendations) == 0 {
		t.Error("Expected recommendations")
	}

	latest, err := store.Latest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if math.Abs(latest.RiskPercentage-res.RiskPercentage) > 1e-9 {
		t.Errorf("Stored %.2f%%, result says %.2f%%", latest.RiskPercentage, res.RiskPercentage)
	}
}

func TestServiceAssessUnknownStudent(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	svc := risk.NewService(store, features.NewExtractor(store), store)

	_, err := svc.Assess(context.Background(), 42)
	if !errors.Is(err, records.ErrStudentNotFound) {
		t.Errorf("Expected ErrStudentNotFound, got %v", err)
	}
}

func TestServiceAssessWithoutStore(t *testing.T) {
	t.Parallel()

	store := newFixtureStore()
	svc := risk.NewService(store, features.NewExtractor(store), nil)

	res, err := svc.Assess(context.Background(), 1)
	if err != nil {
		t.Fatalf("Assess failed: %v", err)
	}
	if res.AssessmentID != "" {
		t.Errorf("Expected empty assessment ID without a store, got %q", res.AssessmentID)
	}
}

func TestServiceAssessAll(t *testing.T) {
	t.Parallel()

	store := newFixtureStore()
	store.AddStudent(records.Student{ID: 2, FamilyIncomeLevel: records.IncomeMedium})
	svc := risk.NewService(store, features.NewExtractor(store), store)

	results, err := svc.AssessAll(context.Background())
	if err != nil {
		t.Fatalf("AssessAll failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}
}
