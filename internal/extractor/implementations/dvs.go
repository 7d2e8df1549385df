package implementations

import (
	"fmt"
	"math"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/timeindex"
)

const defaultContrast = 3.0

// DvsExtractor накапливает события окна в кадр яркости
type DvsExtractor struct {
	ts     []float64
	x, y   recording.Ints
	pol    recording.Ints // может отсутствовать
	width  int
	height int
}

// NewDvsExtractor требует столбцы x и y; разрешение берётся из атрибутов dimX/dimY
// или из максимальных координат.
func NewDvsExtractor(s *recording.Stream) (extractor.Extractor, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	x, okX := s.Ints(recording.FieldX)
	y, okY := s.Ints(recording.FieldY)
	if !okX || !okY {
		return nil, fmt.Errorf("dvs stream needs integer x and y columns: %w", recording.ErrInvalidInput)
	}
	pol, _ := s.Ints(recording.FieldPol)

	e := &DvsExtractor{ts: s.Ts, x: x, y: y, pol: pol}
	e.width, _ = s.AttrInt(recording.AttrDimX)
	e.height, _ = s.AttrInt(recording.AttrDimY)
	if e.width <= 0 {
		e.width = int(maxInt(x)) + 1
	}
	if e.height <= 0 {
		e.height = int(maxInt(y)) + 1
	}
	return e, nil
}

func (e *DvsExtractor) Dims() (int, int)                  { return e.width, e.height }
func (e *DvsExtractor) ColorFormat() extractor.ColorFormat { return extractor.Luminance }

// Frame собирает события из [t - window/2, t + window/2].
// С Polarised фон серый, ON-события светлее, OFF: темнее; иначе яркость растёт с числом событий.
func (e *DvsExtractor) Frame(t, window float64, opts extractor.Options) (*extractor.Image, error) {
	img := extractor.NewImage(e.width, e.height, extractor.Luminance)
	contrast := opts.Contrast
	if contrast <= 0 {
		contrast = defaultContrast
	}

	counts := make([]float64, e.width*e.height)
	lo, hi := timeindex.SearchRange(e.ts, t-window/2, t+window/2)
	for i := lo; i < hi; i++ {
		x, y := int(e.x[i]), int(e.y[i])
		if x < 0 || y < 0 || x >= e.width || y >= e.height {
			continue
		}
		delta := 1.0
		if opts.Polarised && e.pol != nil && e.pol[i] == 0 {
			delta = -1
		}
		counts[y*e.width+x] += delta
	}

	for i, c := range counts {
		v := math.Max(-1, math.Min(1, c/contrast))
		if opts.Polarised {
			img.Pix[i] = uint8(math.Round(127.5 + 127.5*v))
		} else {
			img.Pix[i] = uint8(math.Round(255 * math.Abs(v)))
		}
	}
	return img, nil
}

func maxInt(col recording.Ints) int64 {
	var m int64
	for _, v := range col {
		if v > m {
			m = v
		}
	}
	return m
}
