package recording

// Column описывает выровненный по записям столбец потока, ровно одно значение на каждый ts.
// Slice и Gather всегда возвращают копию, исходный столбец не меняется.
type Column interface {
	Len() int
	Slice(lo, hi int) Column
	Gather(idx []int) Column
}

// Ints: целочисленный столбец (x, y, pol, lbl, ch).
type Ints []int64

func (c Ints) Len() int { return len(c) }

func (c Ints) Slice(lo, hi int) Column {
	out := make(Ints, hi-lo)
	copy(out, c[lo:hi])
	return out
}

func (c Ints) Gather(idx []int) Column {
	out := make(Ints, len(idx))
	for i, j := range idx {
		out[i] = c[j]
	}
	return out
}

// Floats: вещественный столбец.
type Floats []float64

func (c Floats) Len() int { return len(c) }

func (c Floats) Slice(lo, hi int) Column {
	out := make(Floats, hi-lo)
	copy(out, c[lo:hi])
	return out
}

func (c Floats) Gather(idx []int) Column {
	out := make(Floats, len(idx))
	for i, j := range idx {
		out[i] = c[j]
	}
	return out
}

// Vectors хранит по Width чисел на запись в плоском массиве
// (point: 3, rotation: 4 для pose6q и point3).
type Vectors struct {
	Width int
	Data  []float64
}

func (c Vectors) Len() int {
	if c.Width <= 0 {
		return 0
	}
	return len(c.Data) / c.Width
}

// aligned сообщает, что Data делится на целые векторы ширины Width
func (c Vectors) aligned() bool {
	if c.Width <= 0 {
		return len(c.Data) == 0
	}
	return len(c.Data)%c.Width == 0
}

// At возвращает i-й вектор без копирования.
func (c Vectors) At(i int) []float64 {
	return c.Data[i*c.Width : (i+1)*c.Width]
}

func (c Vectors) Slice(lo, hi int) Column {
	out := Vectors{Width: c.Width, Data: make([]float64, (hi-lo)*c.Width)}
	copy(out.Data, c.Data[lo*c.Width:hi*c.Width])
	return out
}

func (c Vectors) Gather(idx []int) Column {
	out := Vectors{Width: c.Width, Data: make([]float64, 0, len(idx)*c.Width)}
	for _, j := range idx {
		out.Data = append(out.Data, c.At(j)...)
	}
	return out
}

// Image хранит один кадр, Channels байт на пиксель (1 для яркости, 3 для RGB).
type Image struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// Frames: столбец кадров. Пиксели кадров не копируются: кадры неизменяемы.
type Frames []Image

func (c Frames) Len() int { return len(c) }

func (c Frames) Slice(lo, hi int) Column {
	out := make(Frames, hi-lo)
	copy(out, c[lo:hi])
	return out
}

func (c Frames) Gather(idx []int) Column {
	out := make(Frames, len(idx))
	for i, j := range idx {
		out[i] = c[j]
	}
	return out
}
