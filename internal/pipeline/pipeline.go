package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/san-kum/sigbits/internal/animation"
	"github.com/san-kum/sigbits/internal/bitfield"
	"github.com/san-kum/sigbits/internal/config"
	"github.com/san-kum/sigbits/internal/dataset"
	"github.com/san-kum/sigbits/internal/frame"
	"github.com/san-kum/sigbits/internal/plot"
	"github.com/san-kum/sigbits/internal/sequence"
	"github.com/san-kum/sigbits/internal/significance"
	"github.com/san-kum/sigbits/internal/threshold"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Stage string

const (
	StagePlot    Stage = "plot"
	StageFrame   Stage = "frame"
	StageAnimate Stage = "animate"
)

const framePrefix = "frame_"

var (
	ErrStageFailed  = errors.New("pipeline: stage failed")
	ErrTaskPanicked = errors.New("pipeline: task panicked")
)

// Result is the outcome of one index of a stage. Path is the artifact the
// task produced.
type Result struct {
	Index     int
	Threshold float64
	Path      string
	Record    threshold.Record
	Err       error
}

type Report struct {
	Stage   Stage
	Results []Result
}

// Failed returns the indices whose task returned an error.
func (r *Report) Failed() []int {
	var out []int
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res.Index)
		}
	}
	return out
}

func (r *Report) Succeeded() []Result {
	out := make([]Result, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Err == nil {
			out = append(out, res)
		}
	}
	return out
}

// Err joins every per-index failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err == nil {
			continue
		}
		if r.Stage == StagePlot {
			errs = append(errs, &threshold.IndexError{Index: res.Index, Threshold: res.Threshold, Wrapped: res.Err})
		} else {
			errs = append(errs, &TaskError{Stage: r.Stage, Index: res.Index, Wrapped: res.Err})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStageFailed, r.Stage, errors.Join(errs...))
}

// TaskError is a failed task of a stage that is not keyed by threshold.
type TaskError struct {
	Stage   Stage
	Index   int
	Wrapped error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %d: %v", e.Stage, e.Index, e.Wrapped)
}

func (e *TaskError) Unwrap() error {
	return e.Wrapped
}

// guard runs fn and turns a panic into the task's error.
func guard(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, p)
		}
	}()
	return fn()
}

// Event is emitted once per completed index.
type Event struct {
	Stage Stage
	Index int
	Done  int
	Total int
	Err   error
}

type renderFunc func(obs []dataset.Observation, threshold float64, opts plot.Options) (image.Image, error)

type Runner struct {
	cfg      *config.Config
	log      *zap.Logger
	progress func(Event)
	render   renderFunc
}

type Option func(*Runner)

func WithProgress(fn func(Event)) Option {
	return func(r *Runner) { r.progress = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		log:    zap.L(),
		render: plot.Render,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Store() *threshold.Store {
	return threshold.NewStore(r.cfg.PlotDir, r.cfg.PlotName)
}

func (r *Runner) emit(stage Stage, res Result, done *atomic.Int64, total int) {
	n := int(done.Add(1))
	if res.Err != nil {
		r.log.Error("task failed",
			zap.String("stage", string(stage)),
			zap.Int("index", res.Index),
			zap.Error(res.Err))
	} else {
		r.log.Debug("task done",
			zap.String("stage", string(stage)),
			zap.Int("index", res.Index),
			zap.String("path", res.Path))
	}
	if r.progress != nil {
		r.progress(Event{Stage: stage, Index: res.Index, Done: n, Total: total, Err: res.Err})
	}
}

// PlotStage writes one plot image and one stats file per selected
// threshold. A failing index leaves the others untouched.
func (r *Runner) PlotStage(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	thresholds, err := ds.SelectThresholds(r.cfg.Resolution)
	if err != nil {
		return nil, err
	}
	store := r.Store()
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("create plot dir: %w", err)
	}
	if n, err := store.Clear(); err != nil {
		return nil, fmt.Errorf("clear plot dir: %w", err)
	} else if n > 0 {
		r.log.Warn("removed stale plots", zap.Int("files", n), zap.String("dir", store.Dir()))
	}

	est := r.cfg.EstimatorSettings()
	opts := r.cfg.PlotOptions()

	r.log.Info("plot stage",
		zap.Int("thresholds", len(thresholds)),
		zap.Int("observations", ds.Len()),
		zap.String("dir", store.Dir()))

	results := make([]Result, len(thresholds))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.WorkerCount())
	for i, t := range thresholds {
		g.Go(func() error {
			res := Result{Index: i, Threshold: t, Path: store.PlotPath(i)}
			if err := gctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Err = guard(func() error {
					var err error
					res.Record, err = r.plotOne(store, i, t, ds, est, opts)
					return err
				})
			}
			results[i] = res
			r.emit(StagePlot, res, &done, len(thresholds))
			return nil
		})
	}
	_ = g.Wait() // errors captured in Result.Err

	return &Report{Stage: StagePlot, Results: results}, ctx.Err()
}

func (r *Runner) plotOne(store *threshold.Store, i int, t float64, ds *dataset.Dataset, est significance.Estimator, opts plot.Options) (threshold.Record, error) {
	rec, err := threshold.Compute(ds, t, est)
	if err != nil {
		return threshold.Record{}, err
	}
	img, err := r.render(ds.Filter(t), t, opts)
	if err != nil {
		return threshold.Record{}, err
	}
	if err := plot.Save(store.PlotPath(i), img); err != nil {
		return threshold.Record{}, err
	}
	if err := store.SaveRecord(i, rec); err != nil {
		os.Remove(store.PlotPath(i))
		return threshold.Record{}, err
	}
	return rec, nil
}

// FrameStage composes every plot image in the store, in natural order, into
// "<frame dir>/frame_<i>.png".
func (r *Runner) FrameStage(ctx context.Context) (*Report, error) {
	store := r.Store()
	plots, err := store.ListPlots()
	if err != nil {
		return nil, err
	}
	if len(plots) == 0 {
		return nil, fmt.Errorf("no plots in %s", store.Dir())
	}
	if err := os.MkdirAll(r.cfg.FrameDir, 0755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	if n, err := clearFrames(r.cfg.FrameDir); err != nil {
		return nil, fmt.Errorf("clear frame dir: %w", err)
	} else if n > 0 {
		r.log.Warn("removed stale frames", zap.Int("files", n), zap.String("dir", r.cfg.FrameDir))
	}

	fc, err := frame.NewContext()
	if err != nil {
		return nil, err
	}
	format := r.cfg.BitFormat()

	r.log.Info("frame stage",
		zap.Int("plots", len(plots)),
		zap.String("dir", r.cfg.FrameDir),
		zap.String("format", format.Name))

	results := make([]Result, len(plots))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.WorkerCount())
	for slot, path := range plots {
		g.Go(func() error {
			res := Result{Index: slot}
			if idx, err := threshold.Index(path); err == nil {
				res.Index = idx
			}
			res.Path = FramePath(r.cfg.FrameDir, res.Index)
			if err := gctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Err = guard(func() error {
					var err error
					res.Record, err = composeOne(fc, path, res.Path, format)
					return err
				})
				if res.Err == nil {
					res.Threshold = res.Record.Z
				}
			}
			results[slot] = res
			r.emit(StageFrame, res, &done, len(plots))
			return nil
		})
	}
	_ = g.Wait()

	return &Report{Stage: StageFrame, Results: results}, ctx.Err()
}

func composeOne(fc *frame.Context, plotPath, framePath string, format bitfield.Format) (threshold.Record, error) {
	statsPath := threshold.StatsPathFor(plotPath)
	img, err := fc.ComposeFile(plotPath, statsPath, format)
	if err != nil {
		return threshold.Record{}, err
	}
	if err := plot.Save(framePath, img); err != nil {
		return threshold.Record{}, err
	}
	return threshold.LoadRecord(statsPath)
}

func FramePath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d.png", framePrefix, i))
}

// clearFrames removes composed frames left by an earlier run.
func clearFrames(dir string) (int, error) {
	frames, err := ListFrames(dir)
	if err != nil {
		return 0, err
	}
	for _, f := range frames {
		if err := os.Remove(f); err != nil {
			return 0, err
		}
	}
	return len(frames), nil
}

// ListFrames returns the composed frames in dir in natural order.
func ListFrames(dir string) ([]string, error) {
	return sequence.Glob(dir, framePrefix+"*.png")
}

// AnimateStage encodes every frame in the frame directory into one gif. It
// runs after FrameStage has returned, so all frames are on disk.
func (r *Runner) AnimateStage(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	frames, err := ListFrames(r.cfg.FrameDir)
	if err != nil {
		return "", err
	}
	out := animation.OutputName(r.cfg.Output)
	r.log.Info("animate stage",
		zap.Int("frames", len(frames)),
		zap.String("output", out),
		zap.Duration("delay", r.cfg.FrameDuration()))

	if err := animation.EncodeFiles(out, frames, r.cfg.FrameDuration()); err != nil {
		return "", err
	}
	return out, nil
}

// Run chains the three stages. Per-index failures in the plot and frame
// stages are logged and skipped; the animation covers what succeeded.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset) (*Summary, error) {
	plots, err := r.PlotStage(ctx, ds)
	if err != nil {
		return nil, err
	}
	if len(plots.Succeeded()) == 0 {
		return nil, plots.Err()
	}
	frames, err := r.FrameStage(ctx)
	if err != nil {
		return nil, err
	}
	out, err := r.AnimateStage(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{Plots: plots, Frames: frames, Output: out}, nil
}

type Summary struct {
	Plots  *Report
	Frames *Report
	Output string
}

// Err reports the per-index failures of both stages.
func (s *Summary) Err() error {
	return errors.Join(s.Plots.Err(), s.Frames.Err())
}
