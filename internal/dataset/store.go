package dataset

import (
	"errors"
	"fmt"

	"seqbatch/internal/tensor"
)

var (
	// ErrInvalidInput indicates parallel collections that cannot form a store.
	ErrInvalidInput = errors.New("dataset: invalid input")
	// ErrIndexOutOfRange indicates an index outside [0, Len()).
	ErrIndexOutOfRange = errors.New("dataset: index out of range")
	// ErrEmptyBatch indicates collation of zero examples.
	ErrEmptyBatch = errors.New("dataset: empty batch")
	// ErrInconsistentFeatureDim indicates sequences whose feature widths differ.
	ErrInconsistentFeatureDim = errors.New("dataset: inconsistent feature dimension")
)

// Sequence is one time series, indexed [timestep][feature].
type Sequence[T tensor.Number] [][]T

// FromScalars lifts a scalar series into a sequence with one feature.
func FromScalars[T tensor.Number](values []T) Sequence[T] {
	seq := make(Sequence[T], len(values))
	for i, v := range values {
		seq[i] = []T{v}
	}
	return seq
}

// FeatureDim reports the row width shared by every timestep, or 0 for an
// empty sequence.
func (s Sequence[T]) FeatureDim() (int, error) {
	if len(s) == 0 {
		return 0, nil
	}
	dim := len(s[0])
	for i, row := range s {
		if len(row) != dim {
			return 0, fmt.Errorf("%w: step %d has %d features, step 0 has %d", ErrInconsistentFeatureDim, i, len(row), dim)
		}
	}
	return dim, nil
}

// Example is a single (sequence, label, length) triple.
type Example[T tensor.Number, L any] struct {
	Sequence Sequence[T]
	Label    L
	Length   int
}

// Source is read-only indexed access to examples.
type Source[T tensor.Number, L any] interface {
	Len() int
	Get(i int) (Example[T, L], error)
}

// Store holds three parallel collections and serves them by position.
// It is immutable after construction and safe for concurrent readers.
type Store[T tensor.Number, L any] struct {
	sequences  []Sequence[T]
	labels     []L
	lengths    []int
	featureDim int
}

var _ Source[float32, int] = (*Store[float32, int])(nil)

// NewStore copies the given collections into a Store.
func NewStore[T tensor.Number, L any](sequences []Sequence[T], labels []L, lengths []int) (*Store[T, L], error) {
	if len(sequences) != len(labels) || len(sequences) != len(lengths) {
		return nil, fmt.Errorf("%w: %d sequences, %d labels, %d lengths",
			ErrInvalidInput, len(sequences), len(labels), len(lengths))
	}
	featureDim, known := 0, false
	for i, seq := range sequences {
		if lengths[i] != len(seq) {
			return nil, fmt.Errorf("%w: length %d at index %d, sequence has %d steps", ErrInvalidInput, lengths[i], i, len(seq))
		}
		dim, err := seq.FeatureDim()
		if err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
		if len(seq) == 0 {
			continue
		}
		if !known {
			featureDim, known = dim, true
		} else if dim != featureDim {
			return nil, fmt.Errorf("%w: sequence %d has %d features, want %d", ErrInconsistentFeatureDim, i, dim, featureDim)
		}
	}

	s := &Store[T, L]{
		sequences:  make([]Sequence[T], len(sequences)),
		labels:     append([]L(nil), labels...),
		lengths:    append([]int(nil), lengths...),
		featureDim: featureDim,
	}
	for i, seq := range sequences {
		s.sequences[i] = cloneSequence(seq)
	}
	return s, nil
}

// Len returns the number of stored examples.
func (s *Store[T, L]) Len() int {
	return len(s.sequences)
}

// FeatureDim returns the feature width shared by every non-empty sequence.
func (s *Store[T, L]) FeatureDim() int {
	return s.featureDim
}

// Get returns the triple at index i. The sequence is a copy; editing it
// leaves the store unchanged.
func (s *Store[T, L]) Get(i int) (Example[T, L], error) {
	if i < 0 || i >= len(s.sequences) {
		return Example[T, L]{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.sequences))
	}
	return Example[T, L]{Sequence: cloneSequence(s.sequences[i]), Label: s.labels[i], Length: s.lengths[i]}, nil
}

// Examples returns the triples at indices, in that order.
func (s *Store[T, L]) Examples(indices []int) ([]Example[T, L], error) {
	return gather[T, L](s, indices)
}

func gather[T tensor.Number, L any](src Source[T, L], indices []int) ([]Example[T, L], error) {
	out := make([]Example[T, L], 0, len(indices))
	for _, idx := range indices {
		ex, err := src.Get(idx)
		if err != nil {
			return nil, err
		}
		out = append(out, ex)
	}
	return out, nil
}

func cloneSequence[T tensor.Number](seq Sequence[T]) Sequence[T] {
	if seq == nil {
		return nil
	}
	out := make(Sequence[T], len(seq))
	for i, row := range seq {
		out[i] = append([]T(nil), row...)
	}
	return out
}
