package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"seqbatch/internal/dataset"
	"seqbatch/internal/metrics"
)

// RunConfig captures the knobs required by the run loop.
type RunConfig struct {
	Epochs     int
	BatchSize  int
	NumWorkers int
	DropLast   bool
	PadValue   float32
	LogEvery   int
}

// Summary describes a completed run.
type Summary struct {
	Steps            int
	Sequences        int
	MeanPaddingRatio float64
}

// Run pulls every batch of src through the loader for cfg.Epochs passes and
// feeds each one to a masked feature-mean pass, the way a model's forward
// step would consume it.
func Run(ctx context.Context, logger *zap.Logger, src dataset.Source[float32, int], cfg RunConfig) (Summary, error) {
	if cfg.Epochs <= 0 {
		return Summary{}, errors.New("pipeline: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return Summary{}, errors.New("pipeline: batch size must be > 0")
	}
	if cfg.LogEvery <= 0 {
		cfg.LogEvery = 50
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &runner{logger: logger, cfg: cfg}
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		if err := r.runEpoch(ctx, src, epoch); err != nil {
			return r.summary, err
		}
	}

	if r.summary.Steps > 0 {
		r.summary.MeanPaddingRatio = r.paddingSum / float64(r.summary.Steps)
	}
	return r.summary, nil
}

type runner struct {
	logger     *zap.Logger
	cfg        RunConfig
	window     metrics.Window
	summary    Summary
	paddingSum float64
}

func (r *runner) runEpoch(parent context.Context, src dataset.Source[float32, int], epoch int) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	batches, errs, err := dataset.StartLoader[float32, int](ctx, src, dataset.LoaderOptions[float32]{
		BatchSize:  r.cfg.BatchSize,
		NumWorkers: r.cfg.NumWorkers,
		DropLast:   r.cfg.DropLast,
		PadValue:   r.cfg.PadValue,
	})
	if err != nil {
		return err
	}
	r.logger.Debug("epoch started",
		zap.Int("epoch", epoch),
		zap.Int("batches", dataset.NumBatches(src.Len(), r.cfg.BatchSize, r.cfg.DropLast)))

	for {
		startData := time.Now()
		batch, err := nextBatch(ctx, batches, errs)
		if err != nil {
			return err
		}
		if batch == nil {
			return nil
		}
		dataTime := time.Since(startData)

		startCompute := time.Now()
		if _, err := maskedMeans(batch); err != nil {
			return fmt.Errorf("pipeline: step %d: %w", r.summary.Steps+1, err)
		}
		computeTime := time.Since(startCompute)

		padding := batch.PaddingRatio()
		r.window.Record(batch.Size(), dataTime, computeTime, padding)
		r.summary.Steps++
		r.summary.Sequences += batch.Size()
		r.paddingSum += padding

		if r.summary.Steps%r.cfg.LogEvery == 0 {
			snap := r.window.Snapshot()
			r.logger.Info("progress",
				zap.Int("epoch", epoch),
				zap.Int("step", r.summary.Steps),
				zap.Float64("sequences_per_sec", snap.SequencesPerSec),
				zap.Float64("data_ms", snap.AvgDataMS),
				zap.Float64("compute_ms", snap.AvgComputeMS),
				zap.Float64("padding_ratio", snap.AvgPaddingRatio),
				zap.Float64("padding_ratio_moving", snap.MovingPaddingRatio),
			)
		}
	}
}

// nextBatch returns the next batch, or nil once the loader is exhausted.
func nextBatch(ctx context.Context, batches <-chan *dataset.Batch[float32, int], errs <-chan error) (*dataset.Batch[float32, int], error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch, ok := <-batches:
		if !ok {
			// the loader reports its error before closing
			if err, ok := <-errs; ok && err != nil {
				return nil, err
			}
			return nil, ctx.Err()
		}
		return batch, nil
	}
}

// maskedMeans averages each example's features over its real timesteps.
func maskedMeans(batch *dataset.Batch[float32, int]) ([][]float64, error) {
	mask := batch.Mask()
	dim := batch.FeatureDim()
	means := make([][]float64, batch.Size())
	for i, row := range mask {
		means[i] = make([]float64, dim)
		n := 0
		for step, valid := range row {
			if !valid {
				continue
			}
			n++
			for f := 0; f < dim; f++ {
				means[i][f] += float64(batch.Padded.At(i, step, f))
			}
		}
		for f := range means[i] {
			if n > 0 {
				means[i][f] /= float64(n)
			}
			if math.IsNaN(means[i][f]) || math.IsInf(means[i][f], 0) {
				return nil, fmt.Errorf("non-finite mean for example %d feature %d", i, f)
			}
		}
	}
	return means, nil
}
