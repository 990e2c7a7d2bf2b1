package dataset

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"seqbatch/internal/tensor"
)

// LoaderOptions configures the batch loader.
type LoaderOptions[T tensor.Number] struct {
	BatchSize  int
	NumWorkers int
	// DropLast discards a trailing batch smaller than BatchSize.
	DropLast bool
	PadValue T
	// FeatureDim is forwarded to the collator; 0 infers it per batch.
	FeatureDim int
}

// NumBatches returns how many batches a source of n examples yields.
func NumBatches(n, batchSize int, dropLast bool) int {
	if n <= 0 || batchSize <= 0 {
		return 0
	}
	if dropLast {
		return n / batchSize
	}
	return (n + batchSize - 1) / batchSize
}

// StartLoader walks src in index order, collating consecutive ranges of
// BatchSize examples on NumWorkers goroutines. Batches are delivered in
// source order. The error channel carries at most one error; both channels
// are closed once the loader stops.
func StartLoader[T tensor.Number, L any](parent context.Context, src Source[T, L], opts LoaderOptions[T]) (<-chan *Batch[T, L], <-chan error, error) {
	if src == nil {
		return nil, nil, errors.New("loader: nil source")
	}
	if opts.BatchSize <= 0 {
		return nil, nil, fmt.Errorf("loader: batch size must be > 0 (got %d)", opts.BatchSize)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}
	collator := Collator[T]{PadValue: opts.PadValue, FeatureDim: opts.FeatureDim}

	ctx, cancel := context.WithCancel(parent)

	jobs := make(chan batchJob, opts.NumWorkers)
	results := make(chan batchResult[T, L], opts.NumWorkers)
	out := make(chan *Batch[T, L], opts.NumWorkers*2)
	errCh := make(chan error, 1)
	workersDone := make(chan error, 1)

	go produceJobs(ctx, jobs, src.Len(), opts.BatchSize, opts.DropLast)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < opts.NumWorkers; i++ {
		g.Go(func() error {
			return worker(gctx, src, collator, jobs, results)
		})
	}

	go func() {
		workersDone <- g.Wait()
		close(results)
	}()

	go func() {
		defer cancel()
		defer close(out)
		defer close(errCh)
		runAggregator(ctx, results, out)
		if err := <-workersDone; err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	return out, errCh, nil
}

type batchJob struct {
	id         int64
	start, end int
}

type batchResult[T tensor.Number, L any] struct {
	id    int64
	batch *Batch[T, L]
}

func produceJobs(ctx context.Context, jobs chan<- batchJob, n, batchSize int, dropLast bool) {
	defer close(jobs)
	total := NumBatches(n, batchSize, dropLast)
	for id := 0; id < total; id++ {
		start := id * batchSize
		end := min(start+batchSize, n)
		select {
		case <-ctx.Done():
			return
		case jobs <- batchJob{id: int64(id), start: start, end: end}:
		}
	}
}

func worker[T tensor.Number, L any](ctx context.Context, src Source[T, L], collator Collator[T], jobs <-chan batchJob, results chan<- batchResult[T, L]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			indices := make([]int, 0, job.end-job.start)
			for i := job.start; i < job.end; i++ {
				indices = append(indices, i)
			}
			examples, err := gather(src, indices)
			if err != nil {
				return fmt.Errorf("loader: batch %d: %w", job.id, err)
			}
			batch, err := CollateWith(collator, examples)
			if err != nil {
				return fmt.Errorf("loader: batch %d: %w", job.id, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case results <- batchResult[T, L]{id: job.id, batch: batch}:
			}
		}
	}
}

// runAggregator forwards results to out strictly in id order, holding early
// arrivals until their predecessors are sent.
func runAggregator[T tensor.Number, L any](ctx context.Context, results <-chan batchResult[T, L], out chan<- *Batch[T, L]) {
	pending := make(map[int64]*Batch[T, L])
	var nextID int64
	for {
		batch, ok := pending[nextID]
		if !ok {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-results:
				if !ok {
					return
				}
				pending[res.id] = res.batch
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case out <- batch:
		}
		delete(pending, nextID)
		nextID++
	}
}
