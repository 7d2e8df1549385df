// Package slicer режет потоки и контейнеры по времени и по значениям столбцов.
// Все функции чистые: вход не изменяется, результатом служат новые потоки.
package slicer

import (
	"fmt"
	"slices"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/timeindex"
)

// cropBounds: необязательные границы обрезки
type cropBounds struct {
	start *float64
	stop  *float64
}

// CropOption задаёт границу обрезки
type CropOption func(*cropBounds)

// WithStart задаёт начало окна (по умолчанию: первая метка)
func WithStart(t float64) CropOption {
	return func(b *cropBounds) { b.start = &t }
}

// WithStop задаёт конец окна (по умолчанию: последняя метка)
func WithStop(t float64) CropOption {
	return func(b *cropBounds) { b.stop = &t }
}

func collectBounds(opts []CropOption) cropBounds {
	var b cropBounds
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// CropTime оставляет записи с ts в [start, stop], сдвигает ts на -start
// и уменьшает TsOffset на start. Атрибуты копируются.
func CropTime(s *recording.Stream, opts ...CropOption) (*recording.Stream, error) {
	if err := s.CheckShape(); err != nil {
		return nil, fmt.Errorf("crop time: %w", err)
	}

	b := collectBounds(opts)
	start, stop := 0.0, 0.0
	if n := len(s.Ts); n > 0 {
		start, stop = s.Ts[0], s.Ts[n-1]
	}
	if b.start != nil {
		start = *b.start
	}
	if b.stop != nil {
		stop = *b.stop
	}

	return cropRange(s, start, stop), nil
}

// cropRange: CropTime без проверок и разбора опций
func cropRange(s *recording.Stream, start, stop float64) *recording.Stream {
	lo, hi := timeindex.SearchRange(s.Ts, start, stop)
	out := s.Range(lo, hi)
	for i := range out.Ts {
		out.Ts[i] -= start
	}
	out.TsOffset = s.TsOffset - start
	return out
}

// Partition: часть потока с одним значением поля
type Partition struct {
	Value  int64
	Stream *recording.Stream
}

// SplitByField разбивает поток по значениям целочисленного столбца field.
// Без values делит по всем встреченным значениям, с values только по ним,
// записи с другими значениями отбрасываются. Пустые части не возвращаются.
// Результат упорядочен по возрастанию значения.
func SplitByField(s *recording.Stream, field string, values ...int64) ([]Partition, error) {
	col, err := intColumn(s, field)
	if err != nil {
		return nil, fmt.Errorf("split by %q: %w", field, err)
	}

	var allowed map[int64]struct{}
	if len(values) > 0 {
		allowed = make(map[int64]struct{}, len(values))
		for _, v := range values {
			allowed[v] = struct{}{}
		}
	}

	groups := make(map[int64][]int)
	for i, v := range col {
		if allowed != nil {
			if _, ok := allowed[v]; !ok {
				continue
			}
		}
		groups[v] = append(groups[v], i)
	}

	keys := make([]int64, 0, len(groups))
	for v := range groups {
		keys = append(keys, v)
	}
	slices.Sort(keys)

	parts := make([]Partition, 0, len(keys))
	for _, v := range keys {
		parts = append(parts, Partition{Value: v, Stream: s.Select(groups[v])})
	}
	return parts, nil
}

// SplitByPolarity разбивает события по полярности (столбец pol).
func SplitByPolarity(s *recording.Stream) ([]Partition, error) {
	return SplitByField(s, recording.FieldPol)
}

// SelectValues оставляет записи, у которых значение field входит в values.
func SelectValues(s *recording.Stream, field string, values ...int64) (*recording.Stream, error) {
	col, err := intColumn(s, field)
	if err != nil {
		return nil, fmt.Errorf("select %q: %w", field, err)
	}

	idx := make([]int, 0, len(col))
	for i, v := range col {
		if slices.Contains(values, v) {
			idx = append(idx, i)
		}
	}
	return s.Select(idx), nil
}

// LabelSplit: результат SplitByLabelPresence; пустая часть равна nil.
type LabelSplit struct {
	Labeled   *recording.Stream
	Unlabeled *recording.Stream
}

// SplitByLabelPresence делит поток на записи с меткой (lbl >= 0) и без неё (lbl < 0).
// У неразмеченной части столбец lbl удаляется.
func SplitByLabelPresence(s *recording.Stream) (LabelSplit, error) {
	col, err := intColumn(s, recording.FieldLbl)
	if err != nil {
		return LabelSplit{}, fmt.Errorf("split by label presence: %w", err)
	}

	var labeled, unlabeled []int
	for i, v := range col {
		if v >= 0 {
			labeled = append(labeled, i)
		} else {
			unlabeled = append(unlabeled, i)
		}
	}

	var out LabelSplit
	if len(labeled) > 0 {
		out.Labeled = s.Select(labeled)
	}
	if len(unlabeled) > 0 {
		out.Unlabeled = s.Select(unlabeled)
		delete(out.Unlabeled.Columns, recording.FieldLbl)
	}
	return out, nil
}

func intColumn(s *recording.Stream, field string) (recording.Ints, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	raw, ok := s.Columns[field]
	if !ok {
		return nil, fmt.Errorf("no column %q: %w", field, recording.ErrInvalidInput)
	}
	col, ok := raw.(recording.Ints)
	if !ok {
		return nil, fmt.Errorf("column %q is not integer: %w", field, recording.ErrInvalidInput)
	}
	return col, nil
}
