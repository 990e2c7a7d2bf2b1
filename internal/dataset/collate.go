package dataset

import (
	"fmt"

	"seqbatch/internal/tensor"
)

// Batch is the collated form of a slice of examples. Row i of every field
// belongs to input example i.
type Batch[T tensor.Number, L any] struct {
	// Padded has shape [batch, maxLen, featureDim].
	Padded  *tensor.Tensor[T]
	Labels  []L
	Lengths []int

	// steps holds the unpadded timestep count of each row.
	steps []int
}

// Collator pads and stacks batches.
type Collator[T tensor.Number] struct {
	// PadValue fills every feature of an appended timestep.
	PadValue T
	// FeatureDim, when positive, is required of every sequence. Otherwise it
	// is taken from the first non-empty sequence in the batch.
	FeatureDim int
}

// Collate zero-pads batch to its longest sequence and stacks it.
func Collate[T tensor.Number, L any](batch []Example[T, L]) (*Batch[T, L], error) {
	return CollateWith(Collator[T]{}, batch)
}

// CollateWith is Collate using the settings in c.
func CollateWith[T tensor.Number, L any](c Collator[T], batch []Example[T, L]) (*Batch[T, L], error) {
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}

	dim, known := c.FeatureDim, c.FeatureDim > 0
	maxLen := 0
	for i, ex := range batch {
		d, err := ex.Sequence.FeatureDim()
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		if len(ex.Sequence) > 0 {
			if !known {
				dim, known = d, true
			} else if d != dim {
				return nil, fmt.Errorf("%w: batch item %d has %d features, want %d", ErrInconsistentFeatureDim, i, d, dim)
			}
		}
		if len(ex.Sequence) > maxLen {
			maxLen = len(ex.Sequence)
		}
	}

	pad := make([]T, dim)
	for i := range pad {
		pad[i] = c.PadValue
	}

	padded := make([][][]T, len(batch))
	labels := make([]L, len(batch))
	lengths := make([]int, len(batch))
	steps := make([]int, len(batch))
	for i, ex := range batch {
		seq, err := tensor.PadTail(ex.Sequence, maxLen, pad)
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		padded[i] = seq
		labels[i] = ex.Label
		lengths[i] = ex.Length
		steps[i] = len(ex.Sequence)
	}

	stacked, err := tensor.Stack(padded, dim)
	if err != nil {
		return nil, err
	}
	return &Batch[T, L]{Padded: stacked, Labels: labels, Lengths: lengths, steps: steps}, nil
}

// Size returns the number of examples in the batch.
func (b *Batch[T, L]) Size() int {
	return len(b.Labels)
}

// MaxLen returns the padded timestep count.
func (b *Batch[T, L]) MaxLen() int {
	return b.Padded.Shape()[1]
}

// FeatureDim returns the width of each timestep.
func (b *Batch[T, L]) FeatureDim() int {
	return b.Padded.Shape()[2]
}

// Mask marks real timesteps true and padding false.
func (b *Batch[T, L]) Mask() [][]bool {
	maxLen := b.MaxLen()
	mask := make([][]bool, len(b.steps))
	for i, n := range b.steps {
		mask[i] = make([]bool, maxLen)
		for j := 0; j < n; j++ {
			mask[i][j] = true
		}
	}
	return mask
}

// PaddingRatio is the fraction of timestep cells in Padded that are padding.
func (b *Batch[T, L]) PaddingRatio() float64 {
	total := len(b.steps) * b.MaxLen()
	if total == 0 {
		return 0
	}
	filled := 0
	for _, n := range b.steps {
		filled += n
	}
	return float64(total-filled) / float64(total)
}
