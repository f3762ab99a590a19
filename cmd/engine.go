package cmd

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/caseboard/suspect-search/internal/config"
	"github.com/caseboard/suspect-search/internal/database/postgres"
	"github.com/caseboard/suspect-search/internal/detect"
	"github.com/caseboard/suspect-search/internal/match"
	"github.com/caseboard/suspect-search/internal/pipeline"
	"github.com/caseboard/suspect-search/internal/recognize"
)

// engine bundles everything a command needs to search or enroll.
type engine struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *postgres.Store
	extractor *recognize.DlibExtractor
	pipeline  *pipeline.Pipeline
}

// openEngine loads configuration, connects to the database, loads the face
// models and wires the pipeline.
func openEngine() (*engine, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Face.ModelsDir == "" {
		return nil, errors.New("FACE_MODELS_DIR environment variable is required")
	}
	if cfg.Face.CascadePath == "" {
		return nil, errors.New("FACE_CASCADE_PATH environment variable is required")
	}

	log, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	pool, err := postgres.Connect(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	store := postgres.NewStore(pool)

	extractor, err := recognize.NewDlibExtractor(cfg.Face.ModelsDir, log)
	if err != nil {
		pool.Close()
		return nil, err
	}

	cascade, err := detect.NewCascadeDetector(cfg.Face.CascadePath, cfg.Thresholds.Detect, log)
	if err != nil {
		extractor.Close()
		pool.Close()
		return nil, err
	}
	detector := detect.NewDetector(cascade, detect.NewCNNDetector(extractor, log))

	matcher := match.NewMatcher(cfg.Thresholds.Match.SearchThreshold, cfg.Thresholds.Index.CandidateCutoff, log)
	p := pipeline.New(store, detector, extractor, matcher, cfg.Thresholds, log)

	return &engine{
		cfg:       cfg,
		log:       log,
		store:     store,
		extractor: extractor,
		pipeline:  p,
	}, nil
}

// Close releases the engine's resources.
func (e *engine) Close() {
	e.extractor.Close()
	if err := e.store.Close(); err != nil {
		e.log.Warn("closing store", zap.Error(err))
	}
	_ = e.log.Sync()
}
