package dataset

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scalarStore(t *testing.T) *Store[float32, int] {
	t.Helper()
	store, err := NewStore(
		[]Sequence[float32]{FromScalars([]float32{1, 2}), FromScalars([]float32{3, 4, 5})},
		[]int{0, 1},
		[]int{2, 3},
	)
	require.NoError(t, err)
	return store
}

func TestStoreGetRoundTrip(t *testing.T) {
	sequences := []Sequence[float64]{
		{{1, 10}, {2, 20}},
		{{3, 30}},
		{{4, 40}, {5, 50}, {6, 60}},
	}
	labels := []string{"up", "flat", "down"}
	lengths := []int{2, 1, 3}

	store, err := NewStore(sequences, labels, lengths)
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())
	assert.Equal(t, 2, store.FeatureDim())

	for i := 0; i < store.Len(); i++ {
		ex, err := store.Get(i)
		require.NoError(t, err)
		if diff := cmp.Diff(sequences[i], ex.Sequence); diff != "" {
			t.Fatalf("sequence %d mismatch (-want +got):\n%s", i, diff)
		}
		assert.Equal(t, labels[i], ex.Label)
		assert.Equal(t, lengths[i], ex.Length)
	}
}

func TestStoreCopiesInputs(t *testing.T) {
	sequences := []Sequence[int]{{{1}, {2}}}
	labels := []int{7}
	lengths := []int{2}
	store, err := NewStore(sequences, labels, lengths)
	require.NoError(t, err)

	sequences[0][0][0] = 99
	labels[0] = 8
	lengths[0] = 5

	ex, err := store.Get(0)
	require.NoError(t, err)
	assert.Equal(t, 1, ex.Sequence[0][0])
	assert.Equal(t, 7, ex.Label)
	assert.Equal(t, 2, ex.Length)
}

func TestStoreMismatchedSizes(t *testing.T) {
	_, err := NewStore(
		[]Sequence[float32]{FromScalars([]float32{1, 2}), FromScalars([]float32{3, 4, 5})},
		[]int{0, 1},
		[]int{2, 3, 4},
	)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewStore([]Sequence[float32]{nil}, []int{}, []int{0})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestStoreGetIsolated(t *testing.T) {
	store := scalarStore(t)

	ex, err := store.Get(0)
	require.NoError(t, err)
	ex.Sequence[0][0] = 99
	ex.Sequence[1] = []float32{42}

	again, err := store.Get(0)
	require.NoError(t, err)
	if diff := cmp.Diff(FromScalars([]float32{1, 2}), again.Sequence); diff != "" {
		t.Fatalf("stored sequence changed through Get (-want +got):\n%s", diff)
	}
}

func TestStoreRejectsLengthMismatch(t *testing.T) {
	sequences := []Sequence[float32]{FromScalars([]float32{1, 2}), FromScalars([]float32{3, 4, 5})}
	cases := map[string][]int{
		"longer than sequence":  {7, 3},
		"shorter than sequence": {2, 0},
		"negative":              {-1, 3},
	}
	for name, lengths := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewStore(sequences, []int{0, 1}, lengths)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestStoreFeatureDimChecked(t *testing.T) {
	_, err := NewStore(
		[]Sequence[float32]{{{1, 2}}, {{3}}},
		[]int{0, 1},
		[]int{1, 1},
	)
	require.ErrorIs(t, err, ErrInconsistentFeatureDim)

	_, err = NewStore(
		[]Sequence[float32]{{{1, 2}, {3}}},
		[]int{0},
		[]int{2},
	)
	require.ErrorIs(t, err, ErrInconsistentFeatureDim)
}

func TestStoreAcceptsEmptySequences(t *testing.T) {
	store, err := NewStore(
		[]Sequence[float32]{{}, {{1, 2}}},
		[]int{0, 1},
		[]int{0, 1},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, store.FeatureDim())
}

func TestStoreIndexOutOfRange(t *testing.T) {
	store := scalarStore(t)
	for _, idx := range []int{-1, 2, 100} {
		_, err := store.Get(idx)
		require.ErrorIs(t, err, ErrIndexOutOfRange, "index %d", idx)
	}

	_, err := store.Examples([]int{0, 5})
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestStoreExamplesKeepsOrder(t *testing.T) {
	store := scalarStore(t)
	examples, err := store.Examples([]int{1, 0, 1})
	require.NoError(t, err)
	require.Len(t, examples, 3)
	assert.Equal(t, []int{1, 0, 1}, []int{examples[0].Label, examples[1].Label, examples[2].Label})
}

func TestStoreConcurrentReads(t *testing.T) {
	store := scalarStore(t)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				ex, err := store.Get(i % store.Len())
				if err != nil || ex.Length != len(ex.Sequence) {
					t.Errorf("read %d: %v", i, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
