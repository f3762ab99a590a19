package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Database   DatabaseConfig
	Face       FaceConfig
	Web        WebConfig
	Thresholds ThresholdsConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type FaceConfig struct {
	ModelsDir   string // directory with the dlib model files
	CascadePath string // path to the binary facefinder cascade
}

type WebConfig struct {
	Port      int    // HTTP listen port (default 8080)
	AuthToken string // bearer token guarding mutating endpoints; empty disables auth
}

type ThresholdsConfig struct {
	Match  MatchThresholds  `yaml:"match"`
	Sketch SketchThresholds `yaml:"sketch"`
	Detect DetectThresholds `yaml:"detect"`
	Index  IndexThresholds  `yaml:"index"`
}

type MatchThresholds struct {
	SearchThreshold          float64 `yaml:"search_threshold"`
	EnrollDuplicateThreshold float64 `yaml:"enroll_duplicate_threshold"`
}

type SketchThresholds struct {
	UniqueValueCutoff int `yaml:"unique_value_cutoff"`
}

type DetectThresholds struct {
	MinFaceSize  int     `yaml:"min_face_size"`
	QualityScore float64 `yaml:"quality_score"`
}

type IndexThresholds struct {
	CandidateCutoff int `yaml:"candidate_cutoff"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var thresholds ThresholdsConfig
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// Embedded file, so this only fires on a broken build.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	// Environment overrides for the tunables operators actually adjust.
	thresholds.Match.SearchThreshold = envFloat("MATCH_THRESHOLD", thresholds.Match.SearchThreshold)
	thresholds.Match.EnrollDuplicateThreshold = envFloat("ENROLL_DUPLICATE_THRESHOLD", thresholds.Match.EnrollDuplicateThreshold)

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Face: FaceConfig{
			ModelsDir:   os.Getenv("FACE_MODELS_DIR"),
			CascadePath: os.Getenv("FACE_CASCADE_PATH"),
		},
		Web: WebConfig{
			Port:      envInt("PORT", 8080),
			AuthToken: os.Getenv("AUTH_TOKEN"),
		},
		Thresholds: thresholds,
	}
}
