package implementations

import (
	"fmt"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/timeindex"
)

// Point3Extractor проецирует точки окна на плоскость кадра
type Point3Extractor struct {
	ts     []float64
	point  recording.Vectors
	bounds sceneBounds
}

// NewPoint3Extractor требует столбец point (3)
func NewPoint3Extractor(s *recording.Stream) (extractor.Extractor, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	point, ok := s.Vectors(recording.FieldPoint)
	if !ok || point.Width != 3 {
		return nil, fmt.Errorf("point3 stream needs a point[3] column: %w", recording.ErrInvalidInput)
	}
	return &Point3Extractor{ts: s.Ts, point: point, bounds: computeBounds(point)}, nil
}

func (e *Point3Extractor) Dims() (int, int)                  { return sceneWidth, sceneHeight }
func (e *Point3Extractor) ColorFormat() extractor.ColorFormat { return extractor.Luminance }

// Frame рисует точки из [t - window/2, t + window/2]
func (e *Point3Extractor) Frame(t, window float64, opts extractor.Options) (*extractor.Image, error) {
	img := extractor.NewImage(sceneWidth, sceneHeight, extractor.Luminance)
	lo, hi := timeindex.SearchRange(e.ts, t-window/2, t+window/2)
	for i := lo; i < hi; i++ {
		px, py, ok := project(e.bounds.normalize(e.point.At(i)), opts.Perspective, sceneWidth, sceneHeight)
		if ok {
			setPixel(img, px, py, 255)
		}
	}
	return img, nil
}
