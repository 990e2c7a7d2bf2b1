package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbatch/internal/tensor"
)

func TestCollateScalarScenario(t *testing.T) {
	store := scalarStore(t)
	examples, err := store.Examples([]int{0, 1})
	require.NoError(t, err)

	batch, err := Collate(examples)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1}, batch.Padded.Shape())

	padded, err := batch.Padded.Squeeze(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, padded.Shape())
	assert.Equal(t, []float32{1, 2, 0, 3, 4, 5}, padded.Data())
	assert.Equal(t, []int{0, 1}, batch.Labels)
	assert.Equal(t, []int{2, 3}, batch.Lengths)
}

func TestCollatePadsTailAndPreservesOrder(t *testing.T) {
	batch := []Example[float64, int]{
		{Sequence: Sequence[float64]{{1, 1}, {2, 2}, {3, 3}}, Label: 10, Length: 3},
		{Sequence: Sequence[float64]{{4, 4}}, Label: 11, Length: 1},
		{Sequence: Sequence[float64]{{5, 5}, {6, 6}, {7, 7}, {8, 8}}, Label: 12, Length: 4},
	}

	out, err := Collate(batch)
	require.NoError(t, err)
	require.Equal(t, []int{3, 4, 2}, out.Padded.Shape())
	assert.Equal(t, 3, out.Size())
	assert.Equal(t, 4, out.MaxLen())
	assert.Equal(t, 2, out.FeatureDim())

	for i, ex := range batch {
		for step := 0; step < out.MaxLen(); step++ {
			for f := 0; f < 2; f++ {
				got := out.Padded.At(i, step, f)
				if step < len(ex.Sequence) {
					assert.Equal(t, ex.Sequence[step][f], got, "row %d step %d", i, step)
				} else {
					assert.Zero(t, got, "row %d step %d should be padding", i, step)
				}
			}
		}
	}
	assert.Equal(t, []int{10, 11, 12}, out.Labels)
	assert.Equal(t, []int{3, 1, 4}, out.Lengths)
}

func TestCollateEqualLengthsIsPlainStack(t *testing.T) {
	seqs := [][][]int{
		{{1, 2}, {3, 4}},
		{{5, 6}, {7, 8}},
	}
	batch := make([]Example[int, int], len(seqs))
	for i, s := range seqs {
		batch[i] = Example[int, int]{Sequence: s, Length: len(s)}
	}

	out, err := Collate(batch)
	require.NoError(t, err)

	want, err := tensor.Stack(seqs, 2)
	require.NoError(t, err)
	assert.Equal(t, want.Shape(), out.Padded.Shape())
	assert.Equal(t, want.Data(), out.Padded.Data())
	assert.Zero(t, out.PaddingRatio())
}

func TestCollateCustomPadValue(t *testing.T) {
	batch := []Example[float32, int]{
		{Sequence: FromScalars([]float32{1}), Length: 1},
		{Sequence: FromScalars([]float32{2, 3}), Length: 2},
	}
	out, err := CollateWith(Collator[float32]{PadValue: -1}, batch)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, -1, 2, 3}, out.Padded.Data())
}

func TestCollateDoesNotMutateInput(t *testing.T) {
	seq := FromScalars([]float32{1})
	batch := []Example[float32, int]{
		{Sequence: seq, Length: 1},
		{Sequence: FromScalars([]float32{2, 3, 4}), Length: 3},
	}
	_, err := Collate(batch)
	require.NoError(t, err)
	assert.Len(t, batch[0].Sequence, 1)
	assert.Len(t, seq, 1)
}

func TestCollateVectorLabels(t *testing.T) {
	batch := []Example[float32, []float32]{
		{Sequence: FromScalars([]float32{1}), Label: []float32{1, 0}, Length: 1},
		{Sequence: FromScalars([]float32{2}), Label: []float32{0, 1}, Length: 1},
	}
	out, err := Collate(batch)
	require.NoError(t, err)

	labels, err := tensor.Matrix(out.Labels)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, labels.Shape())
	assert.Equal(t, float32(1), labels.At(1, 1))
}

func TestCollateMask(t *testing.T) {
	batch := []Example[int, int]{
		{Sequence: FromScalars([]int{1, 2}), Length: 2},
		{Sequence: FromScalars([]int{3}), Length: 1},
		{Sequence: FromScalars([]int{4, 5, 6}), Length: 3},
	}
	out, err := Collate(batch)
	require.NoError(t, err)

	want := [][]bool{
		{true, true, false},
		{true, false, false},
		{true, true, true},
	}
	if diff := cmp.Diff(want, out.Mask()); diff != "" {
		t.Fatalf("mask mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 3.0/9.0, out.PaddingRatio(), 1e-9)
}

func TestCollateEmptyBatch(t *testing.T) {
	_, err := Collate[float32, int](nil)
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = Collate([]Example[float32, int]{})
	require.ErrorIs(t, err, ErrEmptyBatch)
}

func TestCollateInconsistentFeatureDim(t *testing.T) {
	batch := []Example[float32, int]{
		{Sequence: Sequence[float32]{{1, 2}}, Length: 1},
		{Sequence: Sequence[float32]{{3, 4, 5}}, Length: 1},
	}
	_, err := Collate(batch)
	require.ErrorIs(t, err, ErrInconsistentFeatureDim)

	ragged := []Example[float32, int]{
		{Sequence: Sequence[float32]{{1, 2}, {3}}, Length: 2},
	}
	_, err = Collate(ragged)
	require.ErrorIs(t, err, ErrInconsistentFeatureDim)

	fixed := []Example[float32, int]{
		{Sequence: Sequence[float32]{{1, 2}}, Length: 1},
	}
	_, err = CollateWith(Collator[float32]{FeatureDim: 3}, fixed)
	require.ErrorIs(t, err, ErrInconsistentFeatureDim)
}

func TestCollateEmptySequences(t *testing.T) {
	batch := []Example[float32, int]{
		{Sequence: Sequence[float32]{}, Length: 0},
		{Sequence: Sequence[float32]{{1, 2}}, Length: 1},
	}
	out, err := Collate(batch)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 2}, out.Padded.Shape())
	assert.Equal(t, []float32{0, 0, 1, 2}, out.Padded.Data())

	allEmpty := []Example[float32, int]{{Length: 0}, {Length: 0}}
	out, err = Collate(allEmpty)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 0}, out.Padded.Shape())

	out, err = CollateWith(Collator[float32]{FeatureDim: 4}, allEmpty)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 4}, out.Padded.Shape())
}
