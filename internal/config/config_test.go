package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Database.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want 25", cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns != 5 {
		t.Errorf("MaxIdleConns = %d, want 5", cfg.Database.MaxIdleConns)
	}
	if cfg.Web.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Web.Port)
	}
}

func TestLoad_EmbeddedThresholds(t *testing.T) {
	cfg := Load()

	if cfg.Thresholds.Match.SearchThreshold != 0.6 {
		t.Errorf("search threshold = %v, want 0.6", cfg.Thresholds.Match.SearchThreshold)
	}
	if cfg.Thresholds.Match.EnrollDuplicateThreshold != 0.4 {
		t.Errorf("duplicate threshold = %v, want 0.4", cfg.Thresholds.Match.EnrollDuplicateThreshold)
	}
	if cfg.Thresholds.Sketch.UniqueValueCutoff != 20 {
		t.Errorf("sketch cutoff = %d, want 20", cfg.Thresholds.Sketch.UniqueValueCutoff)
	}
	if cfg.Thresholds.Index.CandidateCutoff != 512 {
		t.Errorf("index cutoff = %d, want 512", cfg.Thresholds.Index.CandidateCutoff)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "7")
	t.Setenv("MATCH_THRESHOLD", "0.45")
	t.Setenv("PORT", "9999")

	cfg := Load()

	if cfg.Database.MaxOpenConns != 7 {
		t.Errorf("MaxOpenConns = %d, want 7", cfg.Database.MaxOpenConns)
	}
	if cfg.Thresholds.Match.SearchThreshold != 0.45 {
		t.Errorf("search threshold = %v, want 0.45", cfg.Thresholds.Match.SearchThreshold)
	}
	if cfg.Web.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Web.Port)
	}
}

func TestEnvInt_Invalid(t *testing.T) {
	t.Setenv("DATABASE_MAX_OPEN_CONNS", "not a number")
	if got := envInt("DATABASE_MAX_OPEN_CONNS", 25); got != 25 {
		t.Errorf("invalid value gave %d, want default 25", got)
	}

	t.Setenv("DATABASE_MAX_OPEN_CONNS", "-3")
	if got := envInt("DATABASE_MAX_OPEN_CONNS", 25); got != 25 {
		t.Errorf("negative value gave %d, want default 25", got)
	}
}

func TestEnvFloat_Invalid(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "six tenths")
	if got := envFloat("MATCH_THRESHOLD", 0.6); got != 0.6 {
		t.Errorf("invalid value gave %v, want default 0.6", got)
	}
}
