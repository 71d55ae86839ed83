// Package cli contains the trajeval command line interface.
package cli

import (
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/isae-vo/trajeval/alignment"
	"github.com/isae-vo/trajeval/report"
)

const (
	// Flags.
	flagConfig            = "config"
	flagDebug             = "debug"
	flagLogFile           = "log-file"
	flagLogLevel          = "log-level"
	flagGroundTruthDir    = "gt-dir"
	flagResultDir         = "result-dir"
	flagAlignment         = "alignment"
	flagSequence          = "seq"
	flagFilename          = "filename"
	flagRPEDelta          = "rpe-delta"
	flagRPEStatistic      = "rpe-statistic"
	flagMinMotion         = "min-motion"
	flagMaxTimeDifference = "max-time-diff"
	flagGroundTruthAlign  = "gt-alignment"
	flagPlotDir           = "plot-dir"
	flagParallel          = "parallel"
	flagHistogram         = "histogram"
	flagHistogramBins     = "histogram-bins"
)

var app = &cli.App{
	Name:            "trajeval",
	Usage:           "evaluate visual odometry trajectories against ground truth",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  flagLogFile,
			Usage: "also write logs to `FILE`, rotated past 10MB",
		},
		&cli.StringFlag{
			Name:  flagLogLevel,
			Usage: "minimum `LEVEL` logged: debug, info, warn or error",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "eval",
			Usage:     "evaluate the predicted trajectories of a result directory",
			UsageText: "trajeval eval --gt-dir <dir> --result-dir <dir> [other options]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:  flagGroundTruthDir,
					Usage: "directory holding <sequence>.csv ground truth files",
				},
				&cli.PathFlag{
					Name:  flagResultDir,
					Usage: "directory holding <sequence>.csv predicted trajectories",
				},
				&cli.StringFlag{
					Name:  flagAlignment,
					Usage: "alignment applied to predictions, one of " + modeList(),
				},
				&cli.StringSliceFlag{
					Name:  flagSequence,
					Usage: "sequence to evaluate, may be repeated; defaults to every known sequence in the result directory",
				},
				&cli.StringFlag{
					Name:  flagFilename,
					Usage: "prediction file name to use for every sequence instead of <sequence>.csv",
				},
				&cli.IntFlag{
					Name:  flagRPEDelta,
					Usage: "frame distance of relative pose error windows",
				},
				&cli.StringFlag{
					Name:  flagRPEStatistic,
					Usage: "reduction of relative pose errors: rmse or mean",
				},
				&cli.Float64Flag{
					Name:  flagMinMotion,
					Usage: "ground-truth steps shorter than this many meters are left out of scale ratios, 0 keeps every moving step",
				},
				&cli.Float64Flag{
					Name:  flagMaxTimeDifference,
					Usage: "fail a sequence when matched timestamps are further apart, in seconds",
				},
				&cli.StringFlag{
					Name:  flagGroundTruthAlign,
					Usage: "alignment applied to the ground truth before measuring: none or 6dof",
				},
				&cli.PathFlag{
					Name:  flagPlotDir,
					Usage: "write trajectory and scale figures to this directory",
				},
				&cli.IntFlag{
					Name:  flagParallel,
					Usage: "number of sequences evaluated at once",
				},
				&cli.BoolFlag{
					Name:  flagHistogram,
					Usage: "print a histogram of scale ratios for every sequence",
				},
				&cli.IntFlag{
					Name:  flagHistogramBins,
					Value: report.DefaultHistogramBins,
					Usage: "number of histogram buckets",
				},
			},
			Action: EvalAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

func modeList() string {
	return strings.Join(lo.Map(alignment.Modes, func(m alignment.Mode, _ int) string { return string(m) }), ", ")
}
