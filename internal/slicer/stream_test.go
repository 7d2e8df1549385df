package slicer

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDvsStream(ts []float64, pol []int64) *recording.Stream {
	s := recording.NewStream(ts)
	x := make(recording.Ints, len(ts))
	y := make(recording.Ints, len(ts))
	idx := make(recording.Ints, len(ts))
	for i := range ts {
		x[i] = int64(i % 7)
		y[i] = int64(i % 5)
		idx[i] = int64(i)
	}
	s.Columns[recording.FieldX] = x
	s.Columns[recording.FieldY] = y
	s.Columns[recording.FieldPol] = recording.Ints(pol)
	s.Columns["idx"] = idx
	s.Attrs[recording.AttrDimX] = 7
	s.Attrs["note"] = "test"
	return s
}

// randomStream строит поток со случайными неубывающими метками
func randomStream(rng *rand.Rand, n int) *recording.Stream {
	ts := make([]float64, n)
	pol := make([]int64, n)
	t := 0.0
	for i := range ts {
		t += rng.Float64() * 0.01
		ts[i] = t
		pol[i] = int64(rng.Intn(2))
	}
	s := newDvsStream(ts, pol)
	s.TsOffset = -rng.Float64() * 100
	return s
}

func TestCropTime_Scenario(t *testing.T) {
	s := recording.NewStream([]float64{0, 5, 10, 15, 20})
	s.Columns[recording.FieldX] = recording.Ints{1, 2, 3, 4, 5}

	out, err := CropTime(s, WithStart(5), WithStop(15))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 5, 10}, out.Ts)
	assert.Equal(t, recording.Ints{2, 3, 4}, out.Columns[recording.FieldX])
	assert.Equal(t, -5.0, out.TsOffset, "TsOffset должен уменьшиться на startTime")
}

func TestCropTime_StopIsIndependent(t *testing.T) {
	s := recording.NewStream([]float64{0, 5, 10, 15, 20})

	out, err := CropTime(s, WithStop(10))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10}, out.Ts, "stop не должен подменяться значением start")

	out, err = CropTime(s, WithStart(10))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 10}, out.Ts, "без stop обрезка идёт до последней метки")
}

func TestCropTime_DoesNotMutateInput(t *testing.T) {
	s := newDvsStream([]float64{0, 1, 2, 3}, []int64{0, 1, 0, 1})
	s.Attrs["list"] = []int64{1, 2}

	out, err := CropTime(s, WithStart(1), WithStop(2))
	require.NoError(t, err)

	out.Ts[0] = 99
	out.Columns[recording.FieldX].(recording.Ints)[0] = 99
	out.Attrs["list"].([]int64)[0] = 99

	assert.Equal(t, []float64{0, 1, 2, 3}, s.Ts)
	assert.Equal(t, int64(1), s.Columns[recording.FieldX].(recording.Ints)[1])
	assert.Equal(t, []int64{1, 2}, s.Attrs["list"], "атрибуты копируются, а не разделяются")
	assert.Equal(t, "test", out.Attrs["note"])
}

func TestCropTime_EmptyAndDegenerate(t *testing.T) {
	s := newDvsStream([]float64{0, 1, 2}, []int64{0, 0, 0})

	out, err := CropTime(s, WithStart(5), WithStop(1))
	require.NoError(t, err)
	assert.Empty(t, out.Ts, "start > stop даёт пустой поток")
	assert.Equal(t, 0, out.Columns[recording.FieldX].Len())

	out, err = CropTime(s, WithStart(10), WithStop(20))
	require.NoError(t, err)
	assert.Empty(t, out.Ts)

	empty := recording.NewStream([]float64{})
	out, err = CropTime(empty)
	require.NoError(t, err)
	assert.Empty(t, out.Ts)
}

func TestCropTime_StartBetweenSamples(t *testing.T) {
	s := recording.NewStream([]float64{0, 5, 10})
	s.TsOffset = 1

	out, err := CropTime(s, WithStart(3))
	require.NoError(t, err)
	// Метки сдвигаются ровно на start, первая запись не прижимается к нулю
	assert.Equal(t, []float64{2, 7}, out.Ts)
	assert.Equal(t, -2.0, out.TsOffset)
	for i, ts := range out.Ts {
		assert.InDelta(t, s.Ts[i+1]-s.TsOffset, ts-out.TsOffset, 1e-12)
	}
}

func TestCropTime_InvalidInput(t *testing.T) {
	_, err := CropTime(&recording.Stream{Columns: map[string]recording.Column{}})
	assert.ErrorIs(t, err, recording.ErrInvalidInput, "поток без ts должен отвергаться")

	bad := recording.NewStream([]float64{0, 1})
	bad.Columns[recording.FieldX] = recording.Ints{1}
	_, err = CropTime(bad)
	assert.ErrorIs(t, err, recording.ErrInvalidInput, "длины столбцов должны совпадать с ts")
}

func TestCropTime_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		s := randomStream(rng, 1+rng.Intn(300))
		i := rng.Intn(len(s.Ts))
		j := i + rng.Intn(len(s.Ts)-i)
		t0, t1 := s.Ts[i], s.Ts[j]

		out, err := CropTime(s, WithStart(t0), WithStop(t1))
		require.NoError(t, err)

		// Длины столбцов
		for name, col := range out.Columns {
			require.Equal(t, len(out.Ts), col.Len(), "столбец %s", name)
		}

		// Обнуление
		require.NotEmpty(t, out.Ts)
		assert.Equal(t, 0.0, slices.Min(out.Ts))

		// Сохранение абсолютного времени и сдвиг на t0
		idx := out.Columns["idx"].(recording.Ints)
		for k, tsNew := range out.Ts {
			orig := s.Ts[idx[k]]
			assert.InDelta(t, orig-t0, tsNew, 1e-12)
			assert.InDelta(t, orig-s.TsOffset, tsNew-out.TsOffset, 1e-9)
		}
	}
}

func TestSplitByField_Scenario(t *testing.T) {
	s := recording.NewStream([]float64{0, 1, 2, 3})
	s.Columns[recording.FieldPol] = recording.Ints{0, 1, 0, 1}

	parts, err := SplitByField(s, recording.FieldPol)
	require.NoError(t, err)
	require.Len(t, parts, 2)

	assert.Equal(t, int64(0), parts[0].Value)
	assert.Equal(t, []float64{0, 2}, parts[0].Stream.Ts)
	assert.Equal(t, int64(1), parts[1].Value)
	assert.Equal(t, []float64{1, 3}, parts[1].Stream.Ts)
}

func TestSplitByField_CompleteAndDisjoint(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for iter := 0; iter < 50; iter++ {
		n := 1 + rng.Intn(500)
		s := randomStream(rng, n)
		lbl := make(recording.Ints, n)
		for i := range lbl {
			lbl[i] = int64(rng.Intn(6)) - 1
		}
		s.Columns[recording.FieldLbl] = lbl

		parts, err := SplitByField(s, recording.FieldLbl)
		require.NoError(t, err)

		seen := make(map[int64]int64)
		prev := int64(-1 << 62)
		for _, part := range parts {
			assert.Greater(t, part.Value, prev, "ключи идут по возрастанию")
			prev = part.Value
			assert.Equal(t, s.Attrs, part.Stream.Attrs)
			for k, id := range part.Stream.Columns["idx"].(recording.Ints) {
				_, dup := seen[id]
				require.False(t, dup, "запись %d попала в две части", id)
				seen[id] = part.Value
				assert.Equal(t, s.Ts[id], part.Stream.Ts[k])
				assert.Equal(t, lbl[id], part.Value)
			}
		}
		assert.Len(t, seen, n, "объединение частей должно покрывать все записи")
	}
}

func TestSplitByField_ValueSet(t *testing.T) {
	s := recording.NewStream([]float64{0, 1, 2, 3, 4})
	s.Columns[recording.FieldLbl] = recording.Ints{3, 1, 2, 3, 1}

	parts, err := SplitByField(s, recording.FieldLbl, 3, 9, 1)
	require.NoError(t, err)
	require.Len(t, parts, 2, "значение 9 отсутствует и не попадает в результат")
	assert.Equal(t, int64(1), parts[0].Value)
	assert.Equal(t, []float64{1, 4}, parts[0].Stream.Ts)
	assert.Equal(t, int64(3), parts[1].Value)
	assert.Equal(t, []float64{0, 3}, parts[1].Stream.Ts)
}

func TestSplitByField_InvalidInput(t *testing.T) {
	s := recording.NewStream([]float64{0, 1})
	s.Columns["f"] = recording.Floats{0.5, 1.5}

	_, err := SplitByField(s, "missing")
	assert.ErrorIs(t, err, recording.ErrInvalidInput)

	_, err = SplitByField(s, "f")
	assert.ErrorIs(t, err, recording.ErrInvalidInput, "разбиение возможно только по целому столбцу")

	_, err = SplitByPolarity(&recording.Stream{})
	assert.ErrorIs(t, err, recording.ErrInvalidInput)
}

func TestSplitByLabelPresence(t *testing.T) {
	s := newDvsStream([]float64{0, 1, 2, 3}, []int64{0, 1, 0, 1})
	s.Columns[recording.FieldLbl] = recording.Ints{-1, 2, -1, 0}

	out, err := SplitByLabelPresence(s)
	require.NoError(t, err)
	require.NotNil(t, out.Labeled)
	require.NotNil(t, out.Unlabeled)

	assert.Equal(t, []float64{1, 3}, out.Labeled.Ts)
	assert.Equal(t, recording.Ints{2, 0}, out.Labeled.Columns[recording.FieldLbl])
	assert.Equal(t, []float64{0, 2}, out.Unlabeled.Ts)
	assert.NotContains(t, out.Unlabeled.Columns, recording.FieldLbl)

	s.Columns[recording.FieldLbl] = recording.Ints{-1, -1, -1, -1}
	out, err = SplitByLabelPresence(s)
	require.NoError(t, err)
	assert.Nil(t, out.Labeled, "пустая часть не возвращается")
	assert.Equal(t, 4, out.Unlabeled.Len())
}

func TestSelectValues(t *testing.T) {
	s := recording.NewStream([]float64{0, 1, 2, 3})
	s.Columns[recording.FieldLbl] = recording.Ints{5, 6, 7, 5}

	out, err := SelectValues(s, recording.FieldLbl, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2, 3}, out.Ts)
	assert.Equal(t, recording.Ints{5, 7, 5}, out.Columns[recording.FieldLbl])

	out, err = SelectValues(s, recording.FieldLbl, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
}
