package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// SyntheticOptions describes a generated set of random-walk series.
type SyntheticOptions struct {
	Count      int
	MinLength  int
	MaxLength  int
	FeatureDim int
	NumClasses int
	Seed       int64
}

// Validate reports option combinations that cannot produce a dataset.
func (o SyntheticOptions) Validate() error {
	if o.Count < 0 {
		return fmt.Errorf("synthetic: count must be >= 0 (got %d)", o.Count)
	}
	if o.MinLength < 1 {
		return fmt.Errorf("synthetic: min length must be >= 1 (got %d)", o.MinLength)
	}
	if o.MaxLength < o.MinLength {
		return fmt.Errorf("synthetic: max length %d below min length %d", o.MaxLength, o.MinLength)
	}
	if o.FeatureDim < 1 {
		return fmt.Errorf("synthetic: feature dim must be >= 1 (got %d)", o.FeatureDim)
	}
	if o.NumClasses < 1 {
		return errors.New("synthetic: need at least one class")
	}
	return nil
}

// GenerateSynthetic builds parallel sequences, labels and lengths. Each
// sequence is a Gaussian random walk per feature; its label buckets the
// mean of the final step into NumClasses bins. The output is a pure
// function of opts.
func GenerateSynthetic(opts SyntheticOptions) ([]Sequence[float32], []int, []int, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, nil, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	sequences := make([]Sequence[float32], opts.Count)
	labels := make([]int, opts.Count)
	lengths := make([]int, opts.Count)
	for i := range sequences {
		n := opts.MinLength + rng.Intn(opts.MaxLength-opts.MinLength+1)
		seq := make(Sequence[float32], n)
		pos := make([]float32, opts.FeatureDim)
		for t := range seq {
			for f := range pos {
				pos[f] += float32(rng.NormFloat64())
			}
			seq[t] = append([]float32(nil), pos...)
		}
		sequences[i] = seq
		labels[i] = bucket(mean(pos), opts.NumClasses)
		lengths[i] = n
	}
	return sequences, labels, lengths, nil
}

func mean(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x)
	}
	return sum / float64(len(v))
}

// bucket maps x onto [0, classes) using a logistic squash.
func bucket(x float64, classes int) int {
	p := 1 / (1 + math.Exp(-x/4))
	c := int(p * float64(classes))
	if c >= classes {
		c = classes - 1
	}
	return c
}
