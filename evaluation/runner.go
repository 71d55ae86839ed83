package evaluation

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/isae-vo/trajeval/logging"
	"github.com/isae-vo/trajeval/trajectory"
	"github.com/isae-vo/trajeval/utils"
)

// DefaultSequences are the sequence names evaluated when none are requested explicitly.
var DefaultSequences = []string{
	"C1", "C3", "C4", "C5", "demo_coax", "demo_mars",
	"nonoverlapping_test", "nonoverlapping_cave", "chariot1", "chariot2", "chariot3", "chariot4",
	"traj_3", "traj_4", "sar1", "tour_butte2", "grand_tour",
}

// poseFileExt is the extension of pose files looked up for each sequence.
const poseFileExt = ".csv"

// A Loader reads a timestamped pose stream from a file.
type Loader interface {
	Load(path string) (trajectory.Stamped, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (trajectory.Stamped, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (trajectory.Stamped, error) {
	return f(path)
}

// A Reporter consumes the trajectories of an evaluated sequence, typically to draw them.
type Reporter interface {
	Report(res *Result) error
}

// Sequence names a ground-truth and prediction file pair.
type Sequence struct {
	Name            string
	GroundTruthPath string
	ResultPath      string
}

// Discover lists the sequences that have a pose file in resultDir. When allow is not empty only
// names it contains are returned. Names are sorted.
func Discover(resultDir string, allow []string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(resultDir, "*"+poseFileExt))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list %q", resultDir)
	}
	names := lo.Map(matches, func(path string, _ int) string {
		return strings.TrimSuffix(filepath.Base(path), poseFileExt)
	})
	if len(allow) > 0 {
		names = lo.Filter(names, func(name string, _ int) bool {
			return lo.Contains(allow, name)
		})
	}
	sort.Strings(names)
	return names, nil
}

// BuildSequences pairs every name with "<gtDir>/<name>.csv" and "<resultDir>/<name>.csv". A
// non-empty resultFile replaces the result file name for every sequence. Names and files must
// stay inside their directories.
func BuildSequences(names []string, gtDir, resultDir, resultFile string) ([]Sequence, error) {
	seqs := make([]Sequence, 0, len(names))
	for _, name := range names {
		if err := utils.ValidateName(name); err != nil {
			return nil, err
		}
		result := resultFile
		if result == "" {
			result = name + poseFileExt
		}
		gtPath, err := utils.SafeJoinDir(gtDir, name+poseFileExt)
		if err != nil {
			return nil, err
		}
		resultPath, err := utils.SafeJoinDir(resultDir, result)
		if err != nil {
			return nil, err
		}
		seqs = append(seqs, Sequence{Name: name, GroundTruthPath: gtPath, ResultPath: resultPath})
	}
	return seqs, nil
}

// Runner evaluates a list of sequences. A sequence that fails is logged and skipped; the others
// still run.
type Runner struct {
	Loader Loader
	// Config is the template for every sequence; Sequence and Logger are set per run.
	Config Config
	// Reporter is optional. Reporting failures are logged and do not fail the sequence.
	Reporter Reporter
	// Parallelism is the number of sequences evaluated at once; values below 2 run serially.
	Parallelism int
	Clock       clock.Clock
	Logger      logging.Logger
}

// Run evaluates seqs and returns the results of the sequences that succeeded, in input order. The
// error combines the failure of every sequence that did not.
func (r *Runner) Run(ctx context.Context, seqs []Sequence) ([]*Result, error) {
	if r.Loader == nil {
		return nil, errors.New("runner has no loader")
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("runner")
	}
	clk := r.Clock
	if clk == nil {
		clk = clock.New()
	}

	var (
		mu       sync.Mutex
		failures error
	)
	results := make([]*Result, len(seqs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Parallelism))
	for i, seq := range seqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := clk.Now()
			res, err := r.evaluateOne(seq, logger.Sublogger(seq.Name))
			if err != nil {
				logger.Errorw("sequence failed", "seq", seq.Name, "error", err)
				mu.Lock()
				failures = multierr.Append(failures, errors.Wrapf(err, "sequence %q", seq.Name))
				mu.Unlock()
				return nil
			}
			logger.Debugw("sequence done", "seq", seq.Name, "duration", clk.Since(start).Round(time.Millisecond))
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failures = multierr.Append(failures, err)
	}

	return lo.Filter(results, func(res *Result, _ int) bool { return res != nil }), failures
}

func (r *Runner) evaluateOne(seq Sequence, logger logging.Logger) (*Result, error) {
	pred, err := r.Loader.Load(seq.ResultPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load prediction")
	}
	gt, err := r.Loader.Load(seq.GroundTruthPath)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load ground truth")
	}

	cfg := r.Config
	cfg.Sequence = seq.Name
	cfg.Logger = logger
	res, err := Evaluate(gt, pred, cfg)
	if err != nil {
		return nil, err
	}

	if r.Reporter != nil {
		if err := r.Reporter.Report(res); err != nil {
			logger.Warnw("report failed", "seq", seq.Name, "error", err)
		}
	}
	return res, nil
}

// EnsureDir creates dir if it does not exist yet.
func EnsureDir(dir string) error {
	return errors.Wrapf(os.MkdirAll(dir, 0o750), "cannot create %q", dir)
}
