package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edurisk/internal/cfg"
	"edurisk/internal/cohort"
	"edurisk/internal/features"
	"edurisk/internal/metrics"
	"edurisk/internal/ml"
	"edurisk/internal/records"
	"edurisk/internal/records/memory"
	"edurisk/internal/records/postgres"
	"edurisk/internal/records/rediscache"
	"edurisk/internal/risk"
	"edurisk/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	var (
		mode      = flag.String("mode", "serve", "Mode: serve, train, predict, predict-all, assess, assess-all")
		studentID = flag.Int64("student", 0, "Student ID for predict/assess modes")
	)
	flag.Parse()

	// .env is optional, real environments set variables directly
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	source, roster, assessments, cleanup := initializeRecords(ctx, c)
	defer cleanup()

	bundles, err := storage.Open(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("dataPath", c.DataPath).Msg("failed to open model storage")
	}
	defer bundles.Close()

	extractor := features.NewExtractorWithMetrics(source, mw)

	trainer := ml.NewTrainer(source, extractor, bundles)
	trainer.Seed = c.Seed
	trainer.SetMetrics(mw)

	predictor := ml.NewPredictor(source, extractor, trainer, bundles, assessments)
	predictor.TrainOnDemand = c.TrainOnDemand
	predictor.SetMetrics(mw)

	ruleService := risk.NewService(source, extractor, assessments)

	switch *mode {
	case "train":
		runTrain(ctx, trainer)
	case "predict":
		runPredict(ctx, predictor, *studentID, c.UseEnsemble)
	case "predict-all":
		runPredictAll(ctx, predictor, c.UseEnsemble)
	case "assess":
		runAssess(ctx, ruleService, *studentID)
	case "assess-all":
		runAssessAll(ctx, ruleService)
	case "serve":
		runServe(ctx, cancel, c, roster, assessments)
	default:
		log.Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

// initializeRecords wires the student source and assessment store: PostgreSQL
// when DATABASE_URL is set, an empty in-memory store otherwise. A configured
// Redis address adds a latest-assessment cache in front of the store.
func initializeRecords(ctx context.Context, c cfg.Settings) (records.Source, cohort.Roster, records.AssessmentStore, func()) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var (
		source      records.Source
		roster      cohort.Roster
		assessments records.AssessmentStore
	)

	if c.DatabaseURL != "" {
		conn, err := postgres.Connect(ctx, c.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		closers = append(closers, conn.Close)

		repo := postgres.NewStudentRepository(conn)
		source = repo
		roster = repo
		assessments = postgres.NewAssessmentRepository(conn)
	} else {
		log.Warn().Msg("DATABASE_URL not set, using empty in-memory records")
		store := memory.NewStore()
		source = store
		roster = store
		assessments = store
	}

	if c.RedisAddr != "" {
		cache, err := rediscache.NewCache(c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without assessment cache")
		} else {
			closers = append(closers, func() {
				if err := cache.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close redis client")
				}
			})
			assessments = rediscache.NewCachedAssessments(assessments, cache)
		}
	}

	return source, roster, assessments, cleanup
}

func runTrain(ctx context.Context, trainer *ml.Trainer) {
	report, bundle, err := trainer.Train(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	log.Info().
		Str("bundle", bundle.Key()).
		Float64("forestAUC", report.RandomForest.ROCAUC).
		Float64("logisticAUC", report.LogisticRegression.ROCAUC).
		Msg("training complete")
	printJSON(report)
}

func runPredict(ctx context.Context, predictor *ml.Predictor, studentID int64, useEnsemble bool) {
	if studentID == 0 {
		log.Fatal().Msg("predict mode requires -student")
	}
	res, err := predictor.Predict(ctx, studentID, useEnsemble)
	if err != nil {
		log.Fatal().Err(err).Int64("studentID", studentID).Msg("prediction failed")
	}
	printJSON(res)
}

func runPredictAll(ctx context.Context, predictor *ml.Predictor, useEnsemble bool) {
	results, err := predictor.PredictAll(ctx, useEnsemble)
	if err != nil {
		log.Fatal().Err(err).Msg("population prediction failed")
	}
	log.Info().Int("students", len(results)).Msg("population prediction complete")
	printJSON(results)
}

func runAssess(ctx context.Context, svc *risk.Service, studentID int64) {
	if studentID == 0 {
		log.Fatal().Msg("assess mode requires -student")
	}
	res, err := svc.Assess(ctx, studentID)
	if err != nil {
		log.Fatal().Err(err).Int64("studentID", studentID).Msg("assessment failed")
	}
	printJSON(res)
}

func runAssessAll(ctx context.Context, svc *risk.Service) {
	results, err := svc.AssessAll(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("population assessment failed")
	}
	log.Info().Int("students", len(results)).Msg("population assessment complete")
	printJSON(results)
}

// runServe starts the metrics endpoint and the cohort risk API and blocks
// until a shutdown signal arrives.
func runServe(ctx context.Context, cancel context.CancelFunc, c cfg.Settings, roster cohort.Roster, assessments records.AssessmentStore) {
	startMetricsServer(ctx, c.MetricsPort)

	analyzer := cohort.NewAnalyzer(roster, assessments)
	server := cohort.NewServer(analyzer, assessments, c.APIPort)
	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start cohort server")
	}
	defer func() {
		if err := server.Stop(); err != nil {
			log.Error().Err(err).Msg("cohort server shutdown failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	case <-ctx.Done():
	}
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode output")
	}
}
