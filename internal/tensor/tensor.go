package tensor

import (
	"errors"
	"fmt"
)

// Number is the set of element types a Tensor can hold.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

var (
	// ErrShapeMismatch indicates operands whose shapes cannot be combined.
	ErrShapeMismatch = errors.New("tensor: shape mismatch")
	// ErrTooLong indicates a sequence longer than the requested padded length.
	ErrTooLong = errors.New("tensor: sequence longer than target length")
)

// Tensor is a dense row-major array.
type Tensor[T Number] struct {
	shape []int
	data  []T
}

// New allocates a zero-filled tensor with the given shape.
func New[T Number](shape ...int) *Tensor[T] {
	return &Tensor[T]{shape: append([]int(nil), shape...), data: make([]T, volume(shape))}
}

// FromData wraps data, which must hold exactly the number of elements
// implied by shape. The slice is not copied.
func FromData[T Number](data []T, shape ...int) (*Tensor[T], error) {
	if v := volume(shape); v != len(data) {
		return nil, fmt.Errorf("%w: %d elements for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Tensor[T]{shape: append([]int(nil), shape...), data: data}, nil
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor[T]) Shape() []int {
	return append([]int(nil), t.shape...)
}

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int {
	return len(t.shape)
}

// Data exposes the backing slice in row-major order.
func (t *Tensor[T]) Data() []T {
	return t.data
}

// At returns the element at the given coordinates.
// It panics if the coordinates are out of range, like a slice index.
func (t *Tensor[T]) At(idx ...int) T {
	return t.data[t.offset(idx)]
}

// Set stores v at the given coordinates.
func (t *Tensor[T]) Set(v T, idx ...int) {
	t.data[t.offset(idx)] = v
}

// Squeeze drops axis, which must have size 1. The result shares storage
// with t.
func (t *Tensor[T]) Squeeze(axis int) (*Tensor[T], error) {
	if axis < 0 || axis >= len(t.shape) {
		return nil, fmt.Errorf("%w: axis %d out of range for rank %d", ErrShapeMismatch, axis, len(t.shape))
	}
	if t.shape[axis] != 1 {
		return nil, fmt.Errorf("%w: axis %d has size %d", ErrShapeMismatch, axis, t.shape[axis])
	}
	shape := make([]int, 0, len(t.shape)-1)
	shape = append(shape, t.shape[:axis]...)
	shape = append(shape, t.shape[axis+1:]...)
	return &Tensor[T]{shape: shape, data: t.data}, nil
}

func (t *Tensor[T]) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for axis, i := range idx {
		if i < 0 || i >= t.shape[axis] {
			panic(fmt.Sprintf("tensor: index %d out of range for axis %d (size %d)", i, axis, t.shape[axis]))
		}
		off = off*t.shape[axis] + i
	}
	return off
}

func volume(shape []int) int {
	v := 1
	for _, d := range shape {
		v *= d
	}
	return v
}
