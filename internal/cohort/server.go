package cohort

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"edurisk/internal/records"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// Server exposes class risk summaries and per-student assessment history
// over HTTP for advisor dashboards.
type Server struct {
	analyzer    *Analyzer
	assessments records.AssessmentStore
	server      *http.Server
	isRunning   bool
	mu          sync.Mutex
}

// NewServer creates a Server listening on the given port.
func NewServer(analyzer *Analyzer, assessments records.AssessmentStore, port int) *Server {
	s := &Server{
		analyzer:    analyzer,
		assessments: assessments,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/classes/{classID}/risk-summary", s.handleClassSummary).Methods("GET")
	r.HandleFunc("/api/students/{studentID}/risk", s.handleLatestRisk).Methods("GET")
	r.HandleFunc("/api/students/{studentID}/risk/history", s.handleRiskHistory).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cohort server is already running")
	}

	go func() {
		log.Info().Str("address", s.server.Addr).Msg("Starting cohort risk server")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Cohort risk server failed")
		}
	}()

	s.isRunning = true
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown cohort risk server")
		return err
	}

	s.isRunning = false
	log.Info().Msg("Cohort risk server stopped")
	return nil
}

func (s *Server) handleClassSummary(w http.ResponseWriter, r *http.Request) {
	classID, err := pathID(r, "classID")
	if err != nil {
		http.Error(w, "invalid class id", http.StatusBadRequest)
		return
	}

	summary, err := s.analyzer.Summarize(r.Context(), classID)
	if err != nil {
		log.Error().Err(err).Int64("classID", classID).Msg("Failed to summarize class risk")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleLatestRisk(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentID")
	if err != nil {
		http.Error(w, "invalid student id", http.StatusBadRequest)
		return
	}

	latest, err := s.assessments.Latest(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, records.ErrNoAssessment) {
			http.Error(w, "no assessment for student", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("studentID", studentID).Msg("Failed to load latest assessment")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, latest)
}

func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathID(r, "studentID")
	if err != nil {
		http.Error(w, "invalid student id", http.StatusBadRequest)
		return
	}

	history, err := s.assessments.ByStudent(r.Context(), studentID)
	if err != nil {
		log.Error().Err(err).Int64("studentID", studentID).Msg("Failed to load assessment history")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, history)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
