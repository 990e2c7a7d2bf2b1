package tensor

import "fmt"

// PadTail returns seq extended to length rows by appending copies of pad.
// seq itself is not modified; its rows are shared with the result, keep
// their order and always precede the padding. Sequences
// longer than length are rejected rather than truncated.
func PadTail[T Number](seq [][]T, length int, pad []T) ([][]T, error) {
	if len(seq) > length {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLong, len(seq), length)
	}
	out := make([][]T, length)
	copy(out, seq)
	for i := len(seq); i < length; i++ {
		out[i] = append([]T(nil), pad...)
	}
	return out, nil
}

// Stack combines equally shaped [time][feature] sequences into a tensor of
// shape [len(seqs), time, dim]. Every row must be dim wide.
func Stack[T Number](seqs [][][]T, dim int) (*Tensor[T], error) {
	if len(seqs) == 0 {
		return New[T](0, 0, dim), nil
	}
	steps := len(seqs[0])
	out := New[T](len(seqs), steps, dim)
	pos := 0
	for i, seq := range seqs {
		if len(seq) != steps {
			return nil, fmt.Errorf("%w: sequence %d has %d steps, want %d", ErrShapeMismatch, i, len(seq), steps)
		}
		for j, row := range seq {
			if len(row) != dim {
				return nil, fmt.Errorf("%w: sequence %d step %d has %d features, want %d", ErrShapeMismatch, i, j, len(row), dim)
			}
			pos += copy(out.data[pos:], row)
		}
	}
	return out, nil
}

// Vector builds a rank-1 tensor from values.
func Vector[T Number](values []T) *Tensor[T] {
	return &Tensor[T]{shape: []int{len(values)}, data: append([]T(nil), values...)}
}

// Matrix builds a rank-2 tensor from rows of equal width.
func Matrix[T Number](rows [][]T) (*Tensor[T], error) {
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	out := New[T](len(rows), width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrShapeMismatch, i, len(row), width)
		}
		copy(out.data[i*width:], row)
	}
	return out, nil
}
