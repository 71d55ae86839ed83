// Package config defines the structures to configure an evaluation run.
package config

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/isae-vo/trajeval/alignment"
	"github.com/isae-vo/trajeval/evaluation"
	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/metrics"
	"github.com/isae-vo/trajeval/utils"
)

// A Config describes which sequences to evaluate and how.
type Config struct {
	GroundTruthDir string `json:"gt_dir"`
	ResultDir      string `json:"result_dir"`
	Alignment      string `json:"alignment,omitempty"`
	// Sequences restricts the run to these names. When empty, every known sequence found in
	// ResultDir is evaluated.
	Sequences []string `json:"sequences,omitempty"`
	// Filename replaces "<sequence>.csv" as the prediction file of every sequence.
	Filename          string   `json:"filename,omitempty"`
	RPEDelta          int      `json:"rpe_delta,omitempty"`
	RPEStatistic      string   `json:"rpe_statistic,omitempty"`
	// MinMotion is the shortest ground-truth step kept in scale ratios. Unset means
	// metrics.DefaultMinMotion; 0 keeps every step that moved.
	MinMotion         *float64 `json:"min_motion,omitempty"`
	MaxTimeDifference float64  `json:"max_time_difference,omitempty"`
	GroundTruthAlign  string   `json:"gt_alignment,omitempty"`
	PlotDir           string   `json:"plot_dir,omitempty"`
	Parallelism       int      `json:"parallelism,omitempty"`
	LogFile           string   `json:"log_file,omitempty"`
	// LogLevel is one of debug, info, warn or error. Unset means info.
	LogLevel          string   `json:"log_level,omitempty"`

	ConfigFilePath string `json:"-"`
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.GroundTruthDir == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "gt_dir")
	}
	if c.ResultDir == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "result_dir")
	}
	for _, name := range c.Sequences {
		if err := utils.ValidateName(name); err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
	}
	if _, err := alignment.ParseMode(c.Alignment); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if _, err := metrics.ParseStatistic(c.RPEStatistic); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if _, err := alignment.NewGroundTruthAligner(c.GroundTruthAlign); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if c.RPEDelta < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("rpe_delta must not be negative, got %d", c.RPEDelta))
	}
	if c.MinMotion != nil && *c.MinMotion < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("min_motion must not be negative, got %v", *c.MinMotion))
	}
	if c.MaxTimeDifference < 0 {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("max_time_difference must not be negative, got %v", c.MaxTimeDifference))
	}
	if c.Parallelism < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("parallelism must not be negative, got %d", c.Parallelism))
	}
	if _, err := c.Level(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// Merge overwrites the fields of c with every non-zero field of overrides.
func (c *Config) Merge(overrides Config) {
	mergeString(&c.GroundTruthDir, overrides.GroundTruthDir)
	mergeString(&c.ResultDir, overrides.ResultDir)
	mergeString(&c.Alignment, overrides.Alignment)
	mergeString(&c.Filename, overrides.Filename)
	mergeString(&c.RPEStatistic, overrides.RPEStatistic)
	mergeString(&c.GroundTruthAlign, overrides.GroundTruthAlign)
	mergeString(&c.PlotDir, overrides.PlotDir)
	mergeString(&c.LogFile, overrides.LogFile)
	mergeString(&c.LogLevel, overrides.LogLevel)
	if len(overrides.Sequences) > 0 {
		c.Sequences = append([]string(nil), overrides.Sequences...)
	}
	if overrides.RPEDelta != 0 {
		c.RPEDelta = overrides.RPEDelta
	}
	if overrides.MinMotion != nil {
		minMotion := *overrides.MinMotion
		c.MinMotion = &minMotion
	}
	if overrides.MaxTimeDifference != 0 {
		c.MaxTimeDifference = overrides.MaxTimeDifference
	}
	if overrides.Parallelism != 0 {
		c.Parallelism = overrides.Parallelism
	}
}

func mergeString(dst *string, override string) {
	if override != "" {
		*dst = override
	}
}

// Level returns the parsed LogLevel.
func (c *Config) Level() (logging.Level, error) {
	if c.LogLevel == "" {
		return logging.INFO, nil
	}
	return logging.LevelFromString(c.LogLevel)
}

// EvaluationConfig converts c into the per-sequence configuration of the evaluation package.
func (c *Config) EvaluationConfig(logger logging.Logger) (evaluation.Config, error) {
	mode, err := alignment.ParseMode(c.Alignment)
	if err != nil {
		return evaluation.Config{}, err
	}
	statistic, err := metrics.ParseStatistic(c.RPEStatistic)
	if err != nil {
		return evaluation.Config{}, err
	}
	aligner, err := alignment.NewGroundTruthAligner(c.GroundTruthAlign)
	if err != nil {
		return evaluation.Config{}, err
	}
	minMotion := metrics.DefaultMinMotion
	if c.MinMotion != nil {
		minMotion = *c.MinMotion
	}
	return evaluation.Config{
		Alignment:          mode,
		GroundTruthAligner: aligner,
		Metrics: metrics.Options{
			RPEDelta:     c.RPEDelta,
			RPEStatistic: statistic,
			MinMotion:    minMotion,
		},
		MaxTimeDifference: c.MaxTimeDifference,
		Logger:            logger,
	}, nil
}
