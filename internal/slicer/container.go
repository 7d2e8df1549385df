package slicer

import (
	"fmt"
	"math"
	"strconv"

	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/annel0/sensor-playback/internal/recording"
)

// FirstTimestamp возвращает минимальную первую метку среди непустых потоков контейнера.
func FirstTimestamp(c *recording.Container) (float64, bool) {
	first, found := math.Inf(1), false
	c.Leaves(func(s *recording.Stream) {
		if len(s.Ts) > 0 && s.Ts[0] < first {
			first, found = s.Ts[0], true
		}
	})
	return first, found
}

// LastTimestamp возвращает максимальную последнюю метку среди непустых потоков контейнера.
func LastTimestamp(c *recording.Container) (float64, bool) {
	last, found := math.Inf(-1), false
	c.Leaves(func(s *recording.Stream) {
		if n := len(s.Ts); n > 0 && s.Ts[n-1] > last {
			last, found = s.Ts[n-1], true
		}
	})
	return last, found
}

// CropContainer обрезает каждый поток контейнера одним и тем же окном [start, stop]
// в общей шкале времени контейнера, затем выполняет общий проход обнуления:
// минимальная метка по всему контейнеру становится 0, все TsOffset сдвигаются одинаково.
//
// По умолчанию start и stop: первая и последняя метки всего контейнера, а не потока,
// иначе каналы разъехались бы. Голый поток (лист на верхнем уровне) обрезается как CropTime.
func CropContainer(c *recording.Container, opts ...CropOption) (*recording.Container, error) {
	out, _, _, err := cropContainer(c, collectBounds(opts))
	return out, err
}

// CropRecording обрезает данные записи и сохраняет использованные границы в Info.
func CropRecording(r *recording.Recording, opts ...CropOption) (*recording.Recording, error) {
	if r == nil {
		return nil, fmt.Errorf("crop recording: nil recording: %w", recording.ErrInvalidInput)
	}
	data, start, stop, err := cropContainer(r.Data, collectBounds(opts))
	if err != nil {
		return nil, err
	}
	info := r.Info.Clone()
	info.StartTime = &start
	info.StopTime = &stop
	logging.GetSlicerLogger().Debug("✂️ %s обрезана: [%v, %v]", r.Info.Path, start, stop)
	return &recording.Recording{Info: info, Data: data}, nil
}

func cropContainer(c *recording.Container, b cropBounds) (*recording.Container, float64, float64, error) {
	if c == nil {
		return nil, 0, 0, fmt.Errorf("crop container: nil container: %w", recording.ErrInvalidInput)
	}

	if c.Kind() == recording.KindLeaf {
		s, err := CropTime(c.Stream(), boundsToOptions(b)...)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("crop container: %w", err)
		}
		start := 0.0
		if b.start != nil {
			start = *b.start
		} else if len(c.Stream().Ts) > 0 {
			start = c.Stream().Ts[0]
		}
		stop := start
		if b.stop != nil {
			stop = *b.stop
		} else if n := len(c.Stream().Ts); n > 0 {
			stop = c.Stream().Ts[n-1]
		}
		return recording.NewLeaf(s), start, stop, nil
	}

	leaves := 0
	var shapeErr error
	c.Leaves(func(s *recording.Stream) {
		leaves++
		if shapeErr == nil {
			shapeErr = s.CheckShape()
		}
	})
	if leaves == 0 {
		return nil, 0, 0, fmt.Errorf("crop container: no streams found: %w", recording.ErrInvalidInput)
	}
	if shapeErr != nil {
		return nil, 0, 0, fmt.Errorf("crop container: %w", shapeErr)
	}

	first, ok := FirstTimestamp(c)
	if !ok {
		first = 0
	}
	last, ok := LastTimestamp(c)
	if !ok {
		last = first
	}
	start, stop := first, last
	if b.start != nil {
		start = *b.start
	}
	if b.stop != nil {
		stop = *b.stop
	}

	out, err := c.Map(func(s *recording.Stream) (*recording.Stream, error) {
		if s == nil {
			return nil, fmt.Errorf("crop container: empty leaf: %w", recording.ErrInvalidInput)
		}
		return cropRange(s, start, stop), nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	rezeroInPlace(out)
	return out, start, stop, nil
}

func boundsToOptions(b cropBounds) []CropOption {
	var opts []CropOption
	if b.start != nil {
		opts = append(opts, WithStart(*b.start))
	}
	if b.stop != nil {
		opts = append(opts, WithStop(*b.stop))
	}
	return opts
}

// Rezero возвращает копию контейнера, в которой минимальная метка по всем потокам равна 0.
// Все потоки сдвигаются на одну и ту же величину, TsOffset: вместе с ними.
func Rezero(c *recording.Container) (*recording.Container, error) {
	if c == nil {
		return nil, fmt.Errorf("rezero: nil container: %w", recording.ErrInvalidInput)
	}
	out, err := c.Map(func(s *recording.Stream) (*recording.Stream, error) {
		if err := s.CheckShape(); err != nil {
			return nil, fmt.Errorf("rezero: %w", err)
		}
		return s.Range(0, len(s.Ts)), nil
	})
	if err != nil {
		return nil, err
	}
	rezeroInPlace(out)
	return out, nil
}

// rezeroInPlace меняет потоки контейнера; вызывается только для свежесозданных копий.
func rezeroInPlace(c *recording.Container) {
	shift, ok := FirstTimestamp(c)
	if !ok || shift == 0 {
		return
	}
	c.Leaves(func(s *recording.Stream) {
		for i := range s.Ts {
			s.Ts[i] -= shift
		}
		s.TsOffset -= shift
	})
}

// SplitByChannel разносит dvs-поток канала channel по значениям столбца ch:
// каждый канал получает своё имя по значению ch, столбец ch удаляется.
// Остальные каналы переносятся без изменений.
func SplitByChannel(c *recording.Container, channel string) (*recording.Container, error) {
	if c == nil || c.Kind() != recording.KindKeyed {
		return nil, fmt.Errorf("split by channel: container is not keyed: %w", recording.ErrInvalidInput)
	}
	ch, ok := c.Get(channel)
	if !ok || ch.Kind() != recording.KindKeyed {
		return nil, fmt.Errorf("split by channel: no channel %q: %w", channel, recording.ErrInvalidInput)
	}
	dvsNode, ok := ch.Get("dvs")
	if !ok || dvsNode.Kind() != recording.KindLeaf {
		return nil, fmt.Errorf("split by channel: channel %q has no dvs stream: %w", channel, recording.ErrInvalidInput)
	}

	parts, err := SplitByField(dvsNode.Stream(), recording.FieldCh)
	if err != nil {
		return nil, fmt.Errorf("split by channel: %w", err)
	}

	out := recording.NewKeyed()
	for _, key := range c.Keys() {
		if key != channel {
			child, _ := c.Get(key)
			out.Set(key, child)
			continue
		}
		for _, part := range parts {
			delete(part.Stream.Columns, recording.FieldCh)
			out.Set(strconv.FormatInt(part.Value, 10), recording.NewKeyed().Set("dvs", recording.NewLeaf(part.Stream)))
		}
	}
	return out, nil
}
