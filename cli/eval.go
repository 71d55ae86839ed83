package cli

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/isae-vo/trajeval/config"
	"github.com/isae-vo/trajeval/evaluation"
	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/posefile"
	"github.com/isae-vo/trajeval/report"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	histogramWidth    = 50
	flagsConfigPath   = "flags"
)

// EvalAction is the corresponding Action for 'eval'.
func EvalAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger, err := newLogger(c, cfg)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		logger.Sync()
	}()

	evalCfg, err := cfg.EvaluationConfig(logger)
	if err != nil {
		return err
	}

	names := cfg.Sequences
	if len(names) == 0 {
		if names, err = evaluation.Discover(cfg.ResultDir, evaluation.DefaultSequences); err != nil {
			return err
		}
		if len(names) == 0 {
			return errors.Errorf("no known sequence found in %q", cfg.ResultDir)
		}
	}
	logger.Infow("evaluating", "sequences", names, "alignment", evalCfg.Alignment)

	seqs, err := evaluation.BuildSequences(names, cfg.GroundTruthDir, cfg.ResultDir, cfg.Filename)
	if err != nil {
		return err
	}
	runner := &evaluation.Runner{
		Loader:      posefile.Reader{Logger: logger.Sublogger("posefile")},
		Config:      evalCfg,
		Parallelism: cfg.Parallelism,
		Clock:       clock.New(),
		Logger:      logger,
	}
	if cfg.PlotDir != "" {
		runner.Reporter = &report.Plotter{Dir: cfg.PlotDir, Logger: logger.Sublogger("report")}
	}

	results, runErr := runner.Run(c.Context, seqs)
	if len(results) > 0 {
		if err := report.WriteTable(c.App.Writer, results); err != nil {
			return err
		}
	}
	if c.Bool(flagHistogram) {
		for _, res := range results {
			if err := report.Histogram(c.App.Writer, res, c.Int(flagHistogramBins), histogramWidth); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		if len(results) == 0 {
			return runErr
		}
		warningf(c.App.ErrWriter, "%d of %d sequences failed: %v", len(names)-len(results), len(names), runErr)
	}
	return nil
}

// loadConfig reads the --config file, if any, then applies the command flags over it.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	path := flagsConfigPath
	if file := c.String(flagConfig); file != "" {
		var err error
		if cfg, err = config.Read(file); err != nil {
			return nil, err
		}
		path = file
	}
	overrides := config.Config{
		GroundTruthDir:    c.Path(flagGroundTruthDir),
		ResultDir:         c.Path(flagResultDir),
		Alignment:         c.String(flagAlignment),
		Sequences:         c.StringSlice(flagSequence),
		Filename:          c.String(flagFilename),
		RPEDelta:          c.Int(flagRPEDelta),
		RPEStatistic:      c.String(flagRPEStatistic),
		MaxTimeDifference: c.Float64(flagMaxTimeDifference),
		GroundTruthAlign:  c.String(flagGroundTruthAlign),
		PlotDir:           c.Path(flagPlotDir),
		Parallelism:       c.Int(flagParallel),
		LogFile:           c.Path(flagLogFile),
		LogLevel:          c.String(flagLogLevel),
	}
	if c.IsSet(flagMinMotion) {
		minMotion := c.Float64(flagMinMotion)
		overrides.MinMotion = &minMotion
	}
	cfg.Merge(overrides)
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg *config.Config) (logging.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewBlankLogger("trajeval")
	logger.SetLevel(level)
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if cfg.LogFile != "" {
		logger.AddAppender(logging.NewFileAppender(cfg.LogFile, logFileMaxSizeMB, logFileMaxBackups))
	}
	return logger, nil
}
