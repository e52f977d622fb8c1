package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Params is the fully resolved configuration handed to the detector and
// its collaborators.
type Params struct {
	FaceTolerance       float64       `validate:"gte=0"`
	CentroidTolerance   float64       `validate:"gt=0"`
	LegacySupportRange  bool
	IDMinLength         int           `validate:"gte=0"`
	PoleMarker          string        `validate:"required"`
	Level               string        `validate:"required"`
	DivergenceThreshold float64       `validate:"gt=0"`
	OracleAddress       string        `validate:"omitempty,hostname_port"`
	OracleTimeout       time.Duration `validate:"gt=0"`
	OracleMaxConcurrent int           `validate:"gte=1"`
	OracleRatePerSec    float64       `validate:"gte=0"`
	MaxConcurrentScenes int           `validate:"gte=1"`
	DBPath              string
	PlotDir             string
	RedisAddress        string `validate:"omitempty,hostname_port"`
	RedisStream         string `validate:"required"`
}

// Resolve applies defaults to every unset field and validates the result.
func (c *TuningConfig) Resolve() (Params, error) {
	p := Params{
		FaceTolerance:       c.GetFaceTolerance(),
		CentroidTolerance:   c.GetCentroidTolerance(),
		LegacySupportRange:  c.GetLegacySupportRange(),
		IDMinLength:         c.GetIDMinLength(),
		PoleMarker:          c.GetPoleMarker(),
		Level:               c.GetLevel(),
		DivergenceThreshold: c.GetDivergenceThreshold(),
		OracleAddress:       c.GetOracleAddress(),
		OracleTimeout:       c.GetOracleTimeout(),
		OracleMaxConcurrent: c.GetOracleMaxConcurrent(),
		OracleRatePerSec:    c.GetOracleRatePerSec(),
		MaxConcurrentScenes: c.GetMaxConcurrentScenes(),
		DBPath:              c.GetDBPath(),
		PlotDir:             c.GetPlotDir(),
		RedisAddress:        c.GetRedisAddress(),
		RedisStream:         c.GetRedisStream(),
	}
	if err := validate.Struct(p); err != nil {
		return Params{}, fmt.Errorf("invalid parameters: %w", err)
	}
	return p, nil
}
