package implementations

import (
	"fmt"
	"math"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/timeindex"
)

const axisLength = 0.3

// Pose6qExtractor рисует оси системы координат позы в момент t
type Pose6qExtractor struct {
	ts       []float64
	point    recording.Vectors
	rotation recording.Vectors
	bounds   sceneBounds
}

// NewPose6qExtractor требует столбцы point (3) и rotation (4, кватернион w,x,y,z)
func NewPose6qExtractor(s *recording.Stream) (extractor.Extractor, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	point, okP := s.Vectors(recording.FieldPoint)
	rotation, okR := s.Vectors(recording.FieldRotation)
	if !okP || !okR || point.Width != 3 || rotation.Width != 4 {
		return nil, fmt.Errorf("pose6q stream needs point[3] and rotation[4] columns: %w", recording.ErrInvalidInput)
	}
	return &Pose6qExtractor{
		ts:       s.Ts,
		point:    point,
		rotation: rotation,
		bounds:   computeBounds(point),
	}, nil
}

func (e *Pose6qExtractor) Dims() (int, int)                  { return sceneWidth, sceneHeight }
func (e *Pose6qExtractor) ColorFormat() extractor.ColorFormat { return extractor.RGB }

// Frame рисует позу на момент t. Без Interpolate берётся последняя известная поза,
// с Interpolate интерполяция идёт линейно между соседними позами (кватернион нормируется).
func (e *Pose6qExtractor) Frame(t, _ float64, opts extractor.Options) (*extractor.Image, error) {
	img := extractor.NewImage(sceneWidth, sceneHeight, extractor.RGB)
	idx := timeindex.Floor(e.ts, t)
	if idx < 0 {
		return img, nil
	}

	pos := vec3{}
	copy(pos[:], e.point.At(idx))
	rot := append([]float64(nil), e.rotation.At(idx)...)

	if opts.Interpolate && idx+1 < len(e.ts) && e.ts[idx+1] > e.ts[idx] {
		k := (t - e.ts[idx]) / (e.ts[idx+1] - e.ts[idx])
		next, nextRot := e.point.At(idx+1), e.rotation.At(idx+1)
		for i := 0; i < 3; i++ {
			pos[i] += k * (next[i] - pos[i])
		}
		// Выбираем ближайший из q и -q
		sign := 1.0
		if dot4(rot, nextRot) < 0 {
			sign = -1
		}
		for i := 0; i < 4; i++ {
			rot[i] += k * (sign*nextRot[i] - rot[i])
		}
	}
	if !normalize4(rot) {
		return nil, fmt.Errorf("pose %d has a zero rotation quaternion", idx)
	}

	origin := e.bounds.normalize(pos[:])
	ox, oy, ok := project(origin, opts.Perspective, sceneWidth, sceneHeight)
	if !ok {
		return img, nil
	}

	axes := [3]vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	colors := [3][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	for i, axis := range axes {
		dir := rotate(rot, axis)
		tip := vec3{origin[0] + axisLength*dir[0], origin[1] + axisLength*dir[1], origin[2] + axisLength*dir[2]}
		tx, ty, ok := project(tip, opts.Perspective, sceneWidth, sceneHeight)
		if !ok {
			continue
		}
		drawLine(img, ox, oy, tx, ty, colors[i][:]...)
	}
	return img, nil
}

func dot4(a, b []float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

func normalize4(q []float64) bool {
	n := math.Sqrt(dot4(q, q))
	if n == 0 {
		return false
	}
	for i := range q {
		q[i] /= n
	}
	return true
}
