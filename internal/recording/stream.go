// Package recording описывает модель данных записи: потоки с метками времени,
// каналы и вложенные контейнеры.
package recording

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrInvalidInput: структура входных данных не соответствует контракту.
var ErrInvalidInput = errors.New("invalid input")

// Имена стандартных столбцов
const (
	FieldX        = "x"
	FieldY        = "y"
	FieldPol      = "pol"
	FieldLbl      = "lbl"
	FieldCh       = "ch"
	FieldPoint    = "point"
	FieldRotation = "rotation"
	FieldFrames   = "frames"
)

// Имена стандартных атрибутов
const (
	AttrDimX = "dimX"
	AttrDimY = "dimY"
)

// Stream хранит один тип данных одного канала: ts плюс выровненные столбцы и скалярные атрибуты.
//
// Время записи относительно начала исходной записи равно ts - TsOffset:
// импорт обнуляет ts и сохраняет сдвиг со знаком минус, каждая обрезка сохраняет эту величину.
type Stream struct {
	Ts       []float64
	TsOffset float64
	Columns  map[string]Column
	Attrs    map[string]any
}

// NewStream создаёт поток с пустыми столбцами и атрибутами
func NewStream(ts []float64) *Stream {
	return &Stream{
		Ts:      ts,
		Columns: make(map[string]Column),
		Attrs:   make(map[string]any),
	}
}

// Len возвращает число записей
func (s *Stream) Len() int { return len(s.Ts) }

// ColumnNames возвращает имена столбцов в алфавитном порядке
func (s *Stream) ColumnNames() []string {
	return slices.Sorted(maps.Keys(s.Columns))
}

// Ints возвращает целочисленный столбец по имени
func (s *Stream) Ints(name string) (Ints, bool) {
	c, ok := s.Columns[name].(Ints)
	return c, ok
}

// Vectors возвращает векторный столбец по имени
func (s *Stream) Vectors(name string) (Vectors, bool) {
	c, ok := s.Columns[name].(Vectors)
	return c, ok
}

// Frames возвращает столбец кадров по имени
func (s *Stream) Frames(name string) (Frames, bool) {
	c, ok := s.Columns[name].(Frames)
	return c, ok
}

// AttrInt читает целочисленный атрибут (разрешение сенсора и т.п.)
func (s *Stream) AttrInt(name string) (int, bool) {
	switch v := s.Attrs[name].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// CheckShape проверяет наличие ts и совпадение длин всех столбцов с ts.
func (s *Stream) CheckShape() error {
	if s == nil || s.Ts == nil {
		return fmt.Errorf("stream has no ts: %w", ErrInvalidInput)
	}
	for name, col := range s.Columns {
		if v, ok := col.(Vectors); ok && !v.aligned() {
			return fmt.Errorf("column %q: %d values do not split into vectors of width %d: %w", name, len(v.Data), v.Width, ErrInvalidInput)
		}
		if col.Len() != len(s.Ts) {
			return fmt.Errorf("column %q has %d elements, ts has %d: %w", name, col.Len(), len(s.Ts), ErrInvalidInput)
		}
	}
	return nil
}

// Validate дополнительно к CheckShape проверяет, что ts не убывает.
func (s *Stream) Validate() error {
	if err := s.CheckShape(); err != nil {
		return err
	}
	for i := 1; i < len(s.Ts); i++ {
		if s.Ts[i] < s.Ts[i-1] {
			return fmt.Errorf("ts decreases at index %d: %w", i, ErrInvalidInput)
		}
	}
	return nil
}

// CloneAttrs копирует скалярные атрибуты; срезы внутри атрибутов тоже копируются.
func (s *Stream) CloneAttrs() map[string]any {
	out := make(map[string]any, len(s.Attrs))
	for k, v := range s.Attrs {
		switch t := v.(type) {
		case []int64:
			out[k] = slices.Clone(t)
		case []float64:
			out[k] = slices.Clone(t)
		case []string:
			out[k] = slices.Clone(t)
		case []byte:
			out[k] = slices.Clone(t)
		default:
			out[k] = v
		}
	}
	return out
}

// Range выдаёт новый поток с записями [lo, hi) без изменения ts и сдвига.
func (s *Stream) Range(lo, hi int) *Stream {
	out := &Stream{
		Ts:       slices.Clone(s.Ts[lo:hi]),
		TsOffset: s.TsOffset,
		Columns:  make(map[string]Column, len(s.Columns)),
		Attrs:    s.CloneAttrs(),
	}
	if out.Ts == nil {
		out.Ts = []float64{}
	}
	for name, col := range s.Columns {
		out.Columns[name] = col.Slice(lo, hi)
	}
	return out
}

// Select выдаёт новый поток с записями по индексам idx (в порядке idx).
func (s *Stream) Select(idx []int) *Stream {
	out := &Stream{
		Ts:       make([]float64, len(idx)),
		TsOffset: s.TsOffset,
		Columns:  make(map[string]Column, len(s.Columns)),
		Attrs:    s.CloneAttrs(),
	}
	for i, j := range idx {
		out.Ts[i] = s.Ts[j]
	}
	for name, col := range s.Columns {
		out.Columns[name] = col.Gather(idx)
	}
	return out
}
