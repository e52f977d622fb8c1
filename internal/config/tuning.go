package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical detector defaults file.
const DefaultConfigPath = "config/gravity.defaults.json"

// TuningConfig represents the detector configuration. Every field is
// optional; the Get* methods supply defaults for unset fields so partial
// config files are safe.
type TuningConfig struct {
	// Geometry
	FaceTolerance      *float64 `json:"face_tolerance,omitempty" yaml:"face_tolerance,omitempty"`
	CentroidTolerance  *float64 `json:"centroid_tolerance,omitempty" yaml:"centroid_tolerance,omitempty"`
	LegacySupportRange *bool    `json:"legacy_support_range,omitempty" yaml:"legacy_support_range,omitempty"`

	// Scene id conventions
	IDMinLength *int    `json:"id_min_length,omitempty" yaml:"id_min_length,omitempty"`
	PoleMarker  *string `json:"pole_marker,omitempty" yaml:"pole_marker,omitempty"`
	Level       *string `json:"level,omitempty" yaml:"level,omitempty"`

	// Cross-check oracle
	DivergenceThreshold *float64 `json:"divergence_threshold,omitempty" yaml:"divergence_threshold,omitempty"`
	OracleAddress       *string  `json:"oracle_address,omitempty" yaml:"oracle_address,omitempty"`
	OracleTimeout       *string  `json:"oracle_timeout,omitempty" yaml:"oracle_timeout,omitempty"` // duration string like "10s"
	OracleMaxConcurrent *int     `json:"oracle_max_concurrent,omitempty" yaml:"oracle_max_concurrent,omitempty"`
	OracleRatePerSec    *float64 `json:"oracle_rate_per_sec,omitempty" yaml:"oracle_rate_per_sec,omitempty"`

	// Batch runs and outputs
	MaxConcurrentScenes *int    `json:"max_concurrent_scenes,omitempty" yaml:"max_concurrent_scenes,omitempty"`
	DBPath              *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	PlotDir             *string `json:"plot_dir,omitempty" yaml:"plot_dir,omitempty"`
	RedisAddress        *string `json:"redis_address,omitempty" yaml:"redis_address,omitempty"`
	RedisStream         *string `json:"redis_stream,omitempty" yaml:"redis_stream,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		FaceTolerance:       ptrFloat64(e.GetFaceTolerance()),
		CentroidTolerance:   ptrFloat64(e.GetCentroidTolerance()),
		LegacySupportRange:  ptrBool(e.GetLegacySupportRange()),
		IDMinLength:         ptrInt(e.GetIDMinLength()),
		PoleMarker:          ptrString(e.GetPoleMarker()),
		Level:               ptrString(e.GetLevel()),
		DivergenceThreshold: ptrFloat64(e.GetDivergenceThreshold()),
		OracleAddress:       ptrString(e.GetOracleAddress()),
		OracleTimeout:       ptrString(e.GetOracleTimeout().String()),
		OracleMaxConcurrent: ptrInt(e.GetOracleMaxConcurrent()),
		OracleRatePerSec:    ptrFloat64(e.GetOracleRatePerSec()),
		MaxConcurrentScenes: ptrInt(e.GetMaxConcurrentScenes()),
		DBPath:              ptrString(e.GetDBPath()),
		PlotDir:             ptrString(e.GetPlotDir()),
		RedisAddress:        ptrString(e.GetRedisAddress()),
		RedisStream:         ptrString(e.GetRedisStream()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file is validated to ensure it has a supported extension and is under
// the max file size. Fields omitted from the file keep their defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the set configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.FaceTolerance != nil && *c.FaceTolerance < 0 {
		return fmt.Errorf("face_tolerance must be non-negative, got %g", *c.FaceTolerance)
	}
	if c.CentroidTolerance != nil && *c.CentroidTolerance <= 0 {
		return fmt.Errorf("centroid_tolerance must be positive, got %g", *c.CentroidTolerance)
	}
	if c.DivergenceThreshold != nil && *c.DivergenceThreshold <= 0 {
		return fmt.Errorf("divergence_threshold must be positive, got %g", *c.DivergenceThreshold)
	}
	if c.IDMinLength != nil && *c.IDMinLength < 0 {
		return fmt.Errorf("id_min_length must be non-negative, got %d", *c.IDMinLength)
	}
	if c.OracleTimeout != nil && *c.OracleTimeout != "" {
		if _, err := time.ParseDuration(*c.OracleTimeout); err != nil {
			return fmt.Errorf("invalid oracle_timeout '%s': %w", *c.OracleTimeout, err)
		}
	}
	if c.OracleMaxConcurrent != nil && *c.OracleMaxConcurrent < 1 {
		return fmt.Errorf("oracle_max_concurrent must be at least 1, got %d", *c.OracleMaxConcurrent)
	}
	if c.OracleRatePerSec != nil && *c.OracleRatePerSec < 0 {
		return fmt.Errorf("oracle_rate_per_sec must be non-negative, got %g", *c.OracleRatePerSec)
	}
	if c.MaxConcurrentScenes != nil && *c.MaxConcurrentScenes < 1 {
		return fmt.Errorf("max_concurrent_scenes must be at least 1, got %d", *c.MaxConcurrentScenes)
	}
	return nil
}

// GetFaceTolerance returns the vertical tolerance for face extraction.
func (c *TuningConfig) GetFaceTolerance() float64 {
	if c.FaceTolerance == nil {
		return 1e-6
	}
	return *c.FaceTolerance
}

// GetCentroidTolerance returns the per-axis centroid equality tolerance.
func (c *TuningConfig) GetCentroidTolerance() float64 {
	if c.CentroidTolerance == nil {
		return 1e-5
	}
	return *c.CentroidTolerance
}

// GetLegacySupportRange reports whether stability is predicted with the
// historical mixed-axis range check.
func (c *TuningConfig) GetLegacySupportRange() bool {
	if c.LegacySupportRange == nil {
		return false
	}
	return *c.LegacySupportRange
}

// GetIDMinLength returns the id_min_length value or the default.
func (c *TuningConfig) GetIDMinLength() int {
	if c.IDMinLength == nil {
		return 35
	}
	return *c.IDMinLength
}

// GetPoleMarker returns the pole_marker value or the default.
func (c *TuningConfig) GetPoleMarker() string {
	if c.PoleMarker == nil || *c.PoleMarker == "" {
		return "pole_"
	}
	return *c.PoleMarker
}

// GetLevel returns the task difficulty tag passed to the oracle.
func (c *TuningConfig) GetLevel() string {
	if c.Level == nil || *c.Level == "" {
		return "level2"
	}
	return *c.Level
}

// GetDivergenceThreshold returns the cross-check distance threshold.
func (c *TuningConfig) GetDivergenceThreshold() float64 {
	if c.DivergenceThreshold == nil {
		return 0.25
	}
	return *c.DivergenceThreshold
}

// GetOracleAddress returns the oracle address. Empty disables the
// cross-check.
func (c *TuningConfig) GetOracleAddress() string {
	if c.OracleAddress == nil {
		return ""
	}
	return *c.OracleAddress
}

// GetOracleTimeout parses and returns the OracleTimeout as a time.Duration.
func (c *TuningConfig) GetOracleTimeout() time.Duration {
	if c.OracleTimeout == nil || *c.OracleTimeout == "" {
		return 10 * time.Second // default
	}
	d, err := time.ParseDuration(*c.OracleTimeout)
	if err != nil {
		return 10 * time.Second // default on parse error
	}
	return d
}

// GetOracleMaxConcurrent returns the oracle_max_concurrent value or the default.
func (c *TuningConfig) GetOracleMaxConcurrent() int {
	if c.OracleMaxConcurrent == nil {
		return 1
	}
	return *c.OracleMaxConcurrent
}

// GetOracleRatePerSec returns the oracle call rate limit. Zero means
// unlimited.
func (c *TuningConfig) GetOracleRatePerSec() float64 {
	if c.OracleRatePerSec == nil {
		return 0
	}
	return *c.OracleRatePerSec
}

// GetMaxConcurrentScenes returns the max_concurrent_scenes value or the default.
func (c *TuningConfig) GetMaxConcurrentScenes() int {
	if c.MaxConcurrentScenes == nil {
		return 4
	}
	return *c.MaxConcurrentScenes
}

// GetDBPath returns the verdict database path. Empty disables persistence.
func (c *TuningConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetPlotDir returns the directory for trajectory artifacts. Empty
// disables plotting.
func (c *TuningConfig) GetPlotDir() string {
	if c.PlotDir == nil {
		return ""
	}
	return *c.PlotDir
}

// GetRedisAddress returns the redis address for prediction publishing.
func (c *TuningConfig) GetRedisAddress() string {
	if c.RedisAddress == nil {
		return ""
	}
	return *c.RedisAddress
}

// GetRedisStream returns the redis stream key for predictions.
func (c *TuningConfig) GetRedisStream() string {
	if c.RedisStream == nil || *c.RedisStream == "" {
		return "voe:predictions"
	}
	return *c.RedisStream
}
