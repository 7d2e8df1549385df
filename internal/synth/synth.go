// Package synth генерирует детерминированные синтетические записи на шуме Перлина:
// dvs-события движущегося пятна, кадры, траекторию позы и облако точек.
package synth

import (
	"math"
	"math/rand"
	"sort"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/aquilax/go-perlin"
)

// Options: параметры генерации
type Options struct {
	Seed       int64
	Duration   float64 // секунды
	Width      int     // разрешение сенсора
	Height     int
	EventRate  float64 // dvs-событий в секунду
	FrameRate  float64
	PoseRate   float64
	PointRate  float64
	NoiseScale float64 // масштаб шума по пространству
	Labels     bool    // добавить столбец lbl (-1: без метки)
	Stereo     bool    // добавить канал stereo с dvs-потоком двух камер (столбец ch)
	WithIMU    bool    // добавить поток imu, который плеер не распознаёт
}

// DefaultOptions возвращает параметры короткой демонстрационной записи
func DefaultOptions() Options {
	return Options{
		Seed:       42,
		Duration:   2,
		Width:      64,
		Height:     48,
		EventRate:  5000,
		FrameRate:  25,
		PoseRate:   100,
		PointRate:  500,
		NoiseScale: 0.08,
		Labels:     true,
		Stereo:     true,
		WithIMU:    true,
	}
}

// Generator строит потоки; один и тот же Seed даёт одинаковые данные
type Generator struct {
	opts  Options
	noise *perlin.Perlin
	rng   *rand.Rand
}

// New создаёт генератор
func New(opts Options) *Generator {
	if opts.NoiseScale <= 0 {
		opts.NoiseScale = DefaultOptions().NoiseScale
	}
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &Generator{
		opts:  opts,
		noise: perlin.NewPerlin(alpha, beta, n, opts.Seed),
		rng:   rand.New(rand.NewSource(opts.Seed)),
	}
}

// noise01 возвращает шум в диапазоне [0, 1]
func (g *Generator) noise01(x, y, z float64) float64 {
	return math.Max(0, math.Min(1, (g.noise.Noise3D(x, y, z)+1)/2))
}

// timestamps возвращает count отсортированных случайных меток в [0, Duration)
func (g *Generator) timestamps(count int) []float64 {
	ts := make([]float64, count)
	for i := range ts {
		ts[i] = g.rng.Float64() * g.opts.Duration
	}
	sort.Float64s(ts)
	return ts
}

// regular возвращает метки с шагом 1/rate
func (g *Generator) regular(rate float64) []float64 {
	if rate <= 0 {
		return []float64{}
	}
	n := int(g.opts.Duration * rate)
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = float64(i) / rate
	}
	return ts
}

// blob: центр движущегося пятна в момент t
func (g *Generator) blob(t float64) (float64, float64) {
	w, h := float64(g.opts.Width), float64(g.opts.Height)
	return w/2 + w/3*math.Cos(2*math.Pi*t/g.opts.Duration), h/2 + h/3*math.Sin(2*math.Pi*t/g.opts.Duration)
}

// DVS генерирует события вокруг движущегося пятна; cameras > 1 добавляет столбец ch
func (g *Generator) DVS(cameras int) *recording.Stream {
	ts := g.timestamps(int(g.opts.EventRate * g.opts.Duration))
	x := make(recording.Ints, len(ts))
	y := make(recording.Ints, len(ts))
	pol := make(recording.Ints, len(ts))
	lbl := make(recording.Ints, len(ts))
	ch := make(recording.Ints, len(ts))

	for i, t := range ts {
		cx, cy := g.blob(t)
		// Радиус пятна дышит по шуму
		r := 4 + 6*g.noise01(t, 0.5, 0.5)
		px := cx + g.rng.NormFloat64()*r
		py := cy + g.rng.NormFloat64()*r
		x[i] = clampInt(int64(math.Round(px)), g.opts.Width)
		y[i] = clampInt(int64(math.Round(py)), g.opts.Height)

		// ON, если текстура в этой точке светлеет
		s := g.opts.NoiseScale
		if g.noise01(float64(x[i])*s, float64(y[i])*s, t) >= g.noise01(float64(x[i])*s, float64(y[i])*s, t-0.01) {
			pol[i] = 1
		}

		lbl[i] = -1
		if math.Hypot(px-cx, py-cy) < r {
			lbl[i] = 1
		}
		if cameras > 1 {
			ch[i] = int64(g.rng.Intn(cameras))
		}
	}

	s := recording.NewStream(ts)
	s.Columns[recording.FieldX] = x
	s.Columns[recording.FieldY] = y
	s.Columns[recording.FieldPol] = pol
	if g.opts.Labels {
		s.Columns[recording.FieldLbl] = lbl
	}
	if cameras > 1 {
		s.Columns[recording.FieldCh] = ch
	}
	s.Attrs[recording.AttrDimX] = g.opts.Width
	s.Attrs[recording.AttrDimY] = g.opts.Height
	return s
}

// Frames генерирует кадры яркости с плывущей текстурой
func (g *Generator) Frames() *recording.Stream {
	ts := g.regular(g.opts.FrameRate)
	frames := make(recording.Frames, len(ts))
	s := g.opts.NoiseScale
	for i, t := range ts {
		img := recording.Image{Width: g.opts.Width, Height: g.opts.Height, Channels: 1, Pix: make([]uint8, g.opts.Width*g.opts.Height)}
		for yy := 0; yy < g.opts.Height; yy++ {
			for xx := 0; xx < g.opts.Width; xx++ {
				img.Pix[yy*g.opts.Width+xx] = uint8(255 * g.noise01(float64(xx)*s, float64(yy)*s, t))
			}
		}
		frames[i] = img
	}

	st := recording.NewStream(ts)
	st.Columns[recording.FieldFrames] = frames
	st.Attrs[recording.AttrDimX] = g.opts.Width
	st.Attrs[recording.AttrDimY] = g.opts.Height
	return st
}

// Pose генерирует траекторию: положение по шуму, поворот вокруг z с дрожанием
func (g *Generator) Pose() *recording.Stream {
	ts := g.regular(g.opts.PoseRate)
	point := recording.Vectors{Width: 3, Data: make([]float64, 0, 3*len(ts))}
	rotation := recording.Vectors{Width: 4, Data: make([]float64, 0, 4*len(ts))}
	for _, t := range ts {
		point.Data = append(point.Data,
			g.noise01(t, 0, 0)*2-1,
			g.noise01(0, t, 0)*2-1,
			g.noise01(0, 0, t)*2-1,
		)
		yaw := math.Pi*t/g.opts.Duration + 0.2*(g.noise01(t, t, 0)-0.5)
		rotation.Data = append(rotation.Data, math.Cos(yaw/2), 0, 0, math.Sin(yaw/2))
	}

	s := recording.NewStream(ts)
	s.Columns[recording.FieldPoint] = point
	s.Columns[recording.FieldRotation] = rotation
	return s
}

// Points генерирует точки поверхности z = шум(x, y)
func (g *Generator) Points() *recording.Stream {
	ts := g.timestamps(int(g.opts.PointRate * g.opts.Duration))
	point := recording.Vectors{Width: 3, Data: make([]float64, 0, 3*len(ts))}
	for range ts {
		px, py := g.rng.Float64()*2-1, g.rng.Float64()*2-1
		point.Data = append(point.Data, px, py, g.noise01(px*2, py*2, 0.5)*2-1)
	}
	s := recording.NewStream(ts)
	s.Columns[recording.FieldPoint] = point
	return s
}

// IMU генерирует поток неподдерживаемого типа
func (g *Generator) IMU() *recording.Stream {
	ts := g.regular(g.opts.PoseRate)
	acc := recording.Vectors{Width: 3, Data: make([]float64, 3*len(ts))}
	for i := range acc.Data {
		acc.Data[i] = g.rng.NormFloat64()
	}
	s := recording.NewStream(ts)
	s.Columns["acc"] = acc
	return s
}

// Recording собирает запись: канал cam (dvs, frame), канал body (pose6q, point3, imu)
// и, если включено, канал stereo с dvs двух камер.
func (g *Generator) Recording() *recording.Recording {
	data := recording.NewKeyed().
		Set("cam", recording.Channel(map[string]*recording.Stream{
			"dvs":   g.DVS(1),
			"frame": g.Frames(),
		}))

	body := map[string]*recording.Stream{
		"pose6q": g.Pose(),
		"point3": g.Points(),
	}
	if g.opts.WithIMU {
		body["imu"] = g.IMU()
	}
	data.Set("body", recording.Channel(body))

	if g.opts.Stereo {
		data.Set("stereo", recording.Channel(map[string]*recording.Stream{"dvs": g.DVS(2)}))
	}

	return &recording.Recording{
		Info: recording.Info{Path: "synthetic"},
		Data: data,
	}
}

func clampInt(v int64, size int) int64 {
	if v < 0 {
		return 0
	}
	if v >= int64(size) {
		return int64(size - 1)
	}
	return v
}
