// Package training runs the feature pipeline end to end: it builds the
// feature table from an entity store, splits it in time, encodes, transforms
// and scales both partitions with state fitted on train only, and trains and
// scores classifiers.
package training

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/race-features/internal/classifier"
	"github.com/yourusername/race-features/internal/config"
	"github.com/yourusername/race-features/internal/entitystore"
	"github.com/yourusername/race-features/internal/features"
	"github.com/yourusername/race-features/internal/frame"
	"github.com/yourusername/race-features/internal/logger"
	"github.com/yourusername/race-features/internal/metrics"
	"github.com/yourusername/race-features/internal/pipeline"
	"github.com/yourusername/race-features/internal/transform"
)

// Runner executes pipeline runs for one configuration
type Runner struct {
	cfg   *config.Config
	store entitystore.Store
	log   *logger.PipelineLogger
}

// NewRunner creates a runner reading entity tables from store
func NewRunner(cfg *config.Config, store entitystore.Store, log *logger.PipelineLogger) *Runner {
	return &Runner{cfg: cfg, store: store, log: log}
}

// Prepared holds the model-ready partitions
type Prepared struct {
	Columns []string
	XTrain  [][]float64
	YTrain  []float64
	XTest   [][]float64
	YTest   []float64

	Encoder transform.Encoder
	Scaler  *transform.MinMaxScaler
}

// Outcome reports one classifier run
type Outcome struct {
	Hash        string
	Params      classifier.Params
	Skipped     bool
	Saved       bool
	ScoresTrain classifier.Scores
	ScoresTest  classifier.Scores
}

// RunOptions select what Run trains
type RunOptions struct {
	// Grid expands model.grid over model.params
	Grid bool
	// Force recomputes existing feature columns and retrains parameter sets
	// already present in the results log
	Force bool
}

// Build fetches the dataset and produces the feature table: core join,
// filter, target, temporal aggregates and race-normalized features.
func (r *Runner) Build(ctx context.Context, force bool) (*frame.Table, error) {
	ds, err := entitystore.LoadDataset(ctx, r.store, r.cfg.Dataset.Tables, r.log)
	if err != nil {
		return nil, err
	}
	for name, t := range ds {
		metrics.UpdateTableRows(name, t.NumRows())
	}

	fcfg := features.FromConfig(r.cfg.Features)
	fcfg.Force = fcfg.Force || force

	t, err := pipeline.Run(ctx, nil,
		features.CoreStage(ds, fcfg.Join, r.log),
		features.FilterStage(fcfg.Filter, r.log),
	)
	if err != nil {
		return nil, err
	}

	t, err = features.AddAllFeatures(ctx, t, fcfg, r.log)
	if err != nil {
		return nil, err
	}

	t, err = normalizeStage(r.cfg.Transform, r.log).Apply(ctx, t)
	if err != nil {
		return nil, err
	}
	metrics.UpdateTableRows("features", t.NumRows())
	return t, nil
}

func normalizeStage(cfg config.TransformConfig, log *logger.PipelineLogger) pipeline.Stage {
	return pipeline.Timed(log, "Adding race normalized features", pipeline.Stage{
		Name:     "race_normalized",
		Requires: []string{cfg.CategoryColumn},
		Run: func(_ context.Context, t *frame.Table) (*frame.Table, error) {
			return transform.AddRaceNormalizedFeatures(t, cfg.CategoryColumn, cfg.ExcludedColumns)
		},
	})
}

// Prepare splits t and fits the encoder and scaler on the train partition,
// applying the fitted state to both partitions.
func (r *Runner) Prepare(t *frame.Table) (*Prepared, error) {
	start := time.Now()
	tc := r.cfg.Transform

	cutoff, err := r.cfg.Split.Cutoff()
	if err != nil {
		return nil, err
	}
	part, err := transform.Split(t, r.cfg.Features.DateColumn, features.TargetColumn, cutoff, r.cfg.Split.TestDurationDays)
	if err != nil {
		return nil, err
	}
	r.log.LogSplit(cutoff, r.cfg.Split.TestDurationDays, part.XTrain.NumRows(), part.XTest.NumRows())
	metrics.UpdateTableRows("train", part.XTrain.NumRows())
	metrics.UpdateTableRows("test", part.XTest.NumRows())
	if part.XTrain.NumRows() == 0 {
		return nil, fmt.Errorf("prepare: no training rows before %s", r.cfg.Split.TestDate)
	}

	xTrain, xTest := part.XTrain, part.XTest

	enc, err := transform.NewEncoder(transform.EncoderOptions{
		Type:       tc.Encoder.Type,
		Columns:    tc.Encoder.Columns,
		MinSamples: tc.Encoder.MinSamples,
		Smoothing:  tc.Encoder.Smoothing,
	})
	if err != nil {
		return nil, err
	}
	if enc != nil {
		if err := enc.Fit(xTrain, part.YTrain); err != nil {
			return nil, fmt.Errorf("fit encoder: %w", err)
		}
		if xTrain, err = enc.Transform(xTrain); err != nil {
			return nil, err
		}
		if xTest, err = enc.Transform(xTest); err != nil {
			return nil, err
		}
	}

	if xTrain, err = transform.Process(xTrain, tc.Transforms, tc.ExcludedColumns); err != nil {
		return nil, err
	}
	if xTest, err = transform.Process(xTest, tc.Transforms, tc.ExcludedColumns); err != nil {
		return nil, err
	}
	xTrain = transform.Strip(xTrain, tc.ExcludedColumns)
	xTest = transform.Strip(xTest, tc.ExcludedColumns)

	scaler := transform.NewMinMaxScaler()
	if err := scaler.Fit(xTrain); err != nil {
		return nil, err
	}
	if xTrain, err = scaler.Transform(xTrain); err != nil {
		return nil, err
	}
	if xTest, err = scaler.Transform(xTest); err != nil {
		return nil, err
	}

	columns := xTrain.NumericNames()
	trainMatrix, err := xTrain.Matrix(columns...)
	if err != nil {
		return nil, err
	}
	testMatrix, err := xTest.Matrix(columns...)
	if err != nil {
		return nil, err
	}

	r.log.LogStage("Preparing train/test matrices", time.Since(start))
	return &Prepared{
		Columns: columns,
		XTrain:  trainMatrix,
		YTrain:  part.YTrain,
		XTest:   testMatrix,
		YTest:   part.YTest,
		Encoder: enc,
		Scaler:  scaler,
	}, nil
}

// Train fits one classifier on p, scores it on both partitions and appends
// the result to the results log. A parameter set already in the log is
// skipped unless force is set.
func (r *Runner) Train(ctx context.Context, p *Prepared, params classifier.Params, force bool) (Outcome, error) {
	mc := r.cfg.Model
	clf, err := classifier.New(mc.Type, params, r.log.Entry)
	if err != nil {
		return Outcome{}, err
	}
	hash, err := clf.Hash()
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Hash: hash, Params: clf.Params}

	if !force {
		previous, err := classifier.LoadResults(mc.ResultsDir, mc.Type)
		if err != nil {
			return out, err
		}
		if classifier.HasRun(previous, hash) {
			r.log.WithField("hash", hash).Infof("%s already trained with these parameters, skipping.", mc.Type)
			metrics.RecordClassifierRun(mc.Type, "skipped")
			out.Skipped = true
			return out, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}

	start := time.Now()
	if err := clf.Fit(p.XTrain, p.YTrain); err != nil {
		return out, err
	}
	r.log.LogStage(fmt.Sprintf("Fitting %s", mc.Type), time.Since(start))
	r.log.LogScores(mc.Type, hash, "train", clf.ScoresTrain)

	probas, err := clf.PredictProba(p.XTest)
	if err != nil {
		return out, err
	}
	scores, err := clf.ScoreTest(p.YTest, probas)
	if err != nil {
		return out, fmt.Errorf("score test partition: %w", err)
	}
	r.log.LogScores(mc.Type, hash, "test", scores)

	out.ScoresTrain = clf.ScoresTrain
	out.ScoresTest = scores
	if out.Saved, err = clf.SaveResults(mc.ResultsDir); err != nil {
		return out, err
	}
	return out, nil
}

// Run builds, prepares and trains every parameter set selected by opts
func (r *Runner) Run(ctx context.Context, opts RunOptions) ([]Outcome, error) {
	t, err := r.Build(ctx, opts.Force)
	if err != nil {
		return nil, err
	}
	p, err := r.Prepare(t)
	if err != nil {
		return nil, err
	}

	points := []classifier.Params{classifier.Params(r.cfg.Model.Params)}
	if opts.Grid {
		points = classifier.Grid(r.cfg.Model.Params, r.cfg.Model.Grid)
	}

	outcomes := make([]Outcome, 0, len(points))
	for _, params := range points {
		out, err := r.Train(ctx, p, params, opts.Force)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}

	if opts.Grid {
		results, err := classifier.LoadResults(r.cfg.Model.ResultsDir, r.cfg.Model.Type)
		if err != nil {
			return outcomes, err
		}
		if best, ok := classifier.Best(results, classifier.ROCAUC); ok {
			r.log.WithField("hash", best.Hash).Infof("Best %s so far: %s=%.4f %v",
				r.cfg.Model.Type, classifier.ROCAUC, best.ScoresTest[classifier.ROCAUC], best.Params)
		}
	}
	return outcomes, nil
}
