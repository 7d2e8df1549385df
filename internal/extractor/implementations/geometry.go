package implementations

import (
	"math"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/recording"
)

// Размер кадра для экстракторов без собственного разрешения (pose6q, point3)
const (
	sceneWidth  = 200
	sceneHeight = 200

	cameraDistance = 3.0 // Камера на оси z для перспективной проекции
)

type vec3 [3]float64

// sceneBounds нормирует точки в куб [-1, 1]^3
type sceneBounds struct {
	center vec3
	scale  float64
}

func computeBounds(points recording.Vectors) sceneBounds {
	n := points.Len()
	if n == 0 {
		return sceneBounds{scale: 1}
	}
	lo := vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < n; i++ {
		p := points.At(i)
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	b := sceneBounds{scale: 1}
	half := 0.0
	for k := 0; k < 3; k++ {
		b.center[k] = (lo[k] + hi[k]) / 2
		half = math.Max(half, (hi[k]-lo[k])/2)
	}
	if half > 0 {
		b.scale = 1 / half
	}
	return b
}

func (b sceneBounds) normalize(p []float64) vec3 {
	return vec3{
		(p[0] - b.center[0]) * b.scale,
		(p[1] - b.center[1]) * b.scale,
		(p[2] - b.center[2]) * b.scale,
	}
}

// project переводит нормированную точку в пиксели; ok=false для точек за камерой
func project(p vec3, perspective bool, width, height int) (px, py int, ok bool) {
	sx, sy := p[0], p[1]
	if perspective {
		d := cameraDistance - p[2]
		if d <= 0.1 {
			return 0, 0, false
		}
		sx, sy = sx*2/d, sy*2/d
	}
	// Оставляем поле по краям, чтобы точки на границе куба были видны
	sx, sy = sx*0.9, sy*0.9
	px = int(math.Round((sx + 1) / 2 * float64(width-1)))
	py = int(math.Round((1 - (sy+1)/2) * float64(height-1)))
	return px, py, true
}

// rotate поворачивает вектор кватернионом q = (w, x, y, z)
func rotate(q []float64, v vec3) vec3 {
	w, u := q[0], vec3{q[1], q[2], q[3]}
	t := cross(u, v)
	t = vec3{2 * t[0], 2 * t[1], 2 * t[2]}
	c := cross(u, t)
	return vec3{
		v[0] + w*t[0] + c[0],
		v[1] + w*t[1] + c[1],
		v[2] + w*t[2] + c[2],
	}
}

func cross(a, b vec3) vec3 {
	return vec3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// setPixel пишет цвет, игнорируя точки за пределами кадра
func setPixel(img *extractor.Image, x, y int, color ...uint8) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	bpp := img.Format.BytesPerPixel()
	copy(img.Pix[(y*img.Width+x)*bpp:(y*img.Width+x+1)*bpp], color)
}

// drawLine: алгоритм Брезенхэма
func drawLine(img *extractor.Image, x0, y0, x1, y1 int, color ...uint8) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		setPixel(img, x0, y0, color...)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
