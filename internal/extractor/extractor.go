// Package extractor описывает контракт экстрактора кадров и реестр конструкторов по типу данных.
package extractor

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/sensor-playback/internal/recording"
)

// ColorFormat: формат пикселей кадра
type ColorFormat int

const (
	Luminance ColorFormat = iota
	RGB
)

// String возвращает имя формата
func (f ColorFormat) String() string {
	if f == RGB {
		return "rgb"
	}
	return "luminance"
}

// BytesPerPixel возвращает число байт на пиксель
func (f ColorFormat) BytesPerPixel() int {
	if f == RGB {
		return 3
	}
	return 1
}

// Image: готовый к отображению буфер
type Image struct {
	Width  int
	Height int
	Format ColorFormat
	Pix    []uint8
}

// NewImage создаёт пустой (чёрный) кадр
func NewImage(width, height int, format ColorFormat) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]uint8, width*height*format.BytesPerPixel()),
	}
}

// Fill заливает кадр одним значением
func (img *Image) Fill(v uint8) {
	for i := range img.Pix {
		img.Pix[i] = v
	}
}

// Options: настройки экстракторов; каждый экстрактор читает только свои поля.
type Options struct {
	Polarised   bool    `yaml:"polarised"`   // dvs: ON/OFF события светлее/темнее серого
	Contrast    float64 `yaml:"contrast"`    // dvs: число событий до насыщения
	Interpolate bool    `yaml:"interpolate"` // pose6q: интерполяция между позами
	Perspective bool    `yaml:"perspective"` // pose6q, point3: перспективная проекция
}

// Extractor превращает поток и окно времени в кадр.
// Для времени вне данных экстрактор возвращает пустой кадр, а не ошибку.
type Extractor interface {
	Frame(t, window float64, opts Options) (*Image, error)
	Dims() (width, height int)
	ColorFormat() ColorFormat
}

// Constructor создаёт экстрактор для потока
type Constructor func(s *recording.Stream) (Extractor, error)

// ErrUnknownDataType: для типа данных не зарегистрирован конструктор
var ErrUnknownDataType = errors.New("unknown data type")

// Failure: ошибка конкретного экстрактора при отрисовке кадра
type Failure struct {
	Path     string
	DataType string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("extractor %s (%s) failed: %v", f.Path, f.DataType, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Registry сопоставляет имя типа данных с конструктором экстрактора
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register добавляет или заменяет конструктор для типа данных
func (r *Registry) Register(dataType string, ctor Constructor) {
	r.mu.Lock()
	r.constructors[dataType] = ctor
	r.mu.Unlock()
}

// Get возвращает конструктор для типа данных
func (r *Registry) Get(dataType string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ctor, ok := r.constructors[dataType]
	return ctor, ok
}

// New создаёт экстрактор для потока указанного типа
func (r *Registry) New(dataType string, s *recording.Stream) (Extractor, error) {
	ctor, ok := r.Get(dataType)
	if !ok {
		return nil, fmt.Errorf("%q: %w", dataType, ErrUnknownDataType)
	}
	return ctor(s)
}

// DataTypes возвращает зарегистрированные типы в алфавитном порядке
func (r *Registry) DataTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var defaultRegistry = NewRegistry()

// Default возвращает глобальный реестр, который заполняют пакеты реализаций при импорте
func Default() *Registry { return defaultRegistry }

// Register добавляет конструктор в глобальный реестр
func Register(dataType string, ctor Constructor) {
	defaultRegistry.Register(dataType, ctor)
}
