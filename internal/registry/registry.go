// Package registry находит потоки во вложенном контейнере записи.
package registry

import (
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/annel0/sensor-playback/internal/logging"
	"github.com/annel0/sensor-playback/internal/recording"
)

// Распознаваемые типы данных
const (
	DataTypeDVS    = "dvs"
	DataTypeFrame  = "frame"
	DataTypePose6q = "pose6q"
	DataTypePoint3 = "point3"
)

var recognized = []string{DataTypeDVS, DataTypeFrame, DataTypePose6q, DataTypePoint3}

// RecognizedTypes возвращает закрытый набор поддерживаемых типов данных
func RecognizedTypes() []string { return slices.Clone(recognized) }

// IsRecognized проверяет, поддерживается ли тип данных
func IsRecognized(name string) bool { return slices.Contains(recognized, name) }

// Leaf: любой найденный поток, поддерживаемый или нет
type Leaf struct {
	Segments []string // Путь до канала (без имени типа данных)
	DataType string   // Ключ, под которым лежит поток; пусто для голого потока
	Stream   *recording.Stream
}

// Path возвращает путь в виде "seg/seg/..."
func (l Leaf) Path() string { return strings.Join(l.Segments, "/") }

// Entry: поток распознанного типа
type Entry struct {
	Path     string
	DataType string
	Stream   *recording.Stream
}

// Unsupported описывает пропущенный поток нераспознанного типа
type Unsupported struct {
	Path     string
	DataType string
}

// Walk обходит все потоки контейнера ровно по одному разу.
// Каждый вызов обходит контейнер заново; последовательность ленивая.
func Walk(c *recording.Container) iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		walk(c, nil, "", yield)
	}
}

// walk возвращает false, если потребитель прервал обход
func walk(c *recording.Container, segments []string, name string, yield func(Leaf) bool) bool {
	if c == nil {
		return true
	}
	switch c.Kind() {
	case recording.KindLeaf:
		if c.Stream() == nil {
			return true
		}
		return yield(Leaf{Segments: slices.Clone(segments), DataType: name, Stream: c.Stream()})
	case recording.KindIndexed:
		for i, item := range c.Items() {
			if !walk(item, appendSegment(segments, name, strconv.Itoa(i)), "", yield) {
				return false
			}
		}
	case recording.KindKeyed:
		for _, key := range c.Keys() {
			child, _ := c.Get(key)
			if !walk(child, appendSegment(segments, name), key, yield) {
				return false
			}
		}
	}
	return true
}

// appendSegment добавляет имя текущего узла (если есть) и дополнительные сегменты.
// Имя узла попадает в путь только когда узел оказался не листом.
func appendSegment(segments []string, name string, extra ...string) []string {
	out := slices.Clip(segments)
	if name != "" {
		out = append(out, name)
	}
	return append(out, extra...)
}

type discoverOptions struct {
	onUnsupported func(Unsupported)
}

// Option настраивает Discover
type Option func(*discoverOptions)

// OnUnsupported задаёт обработчик пропущенных потоков нераспознанного типа.
func OnUnsupported(fn func(Unsupported)) Option {
	return func(o *discoverOptions) { o.onUnsupported = fn }
}

// Discover выдаёт только потоки распознанных типов (dvs, frame, pose6q, point3).
// Остальные потоки не считаются ошибкой: о них сообщается обработчику и в лог.
func Discover(c *recording.Container, opts ...Option) iter.Seq[Entry] {
	o := discoverOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(yield func(Entry) bool) {
		for leaf := range Walk(c) {
			if !IsRecognized(leaf.DataType) {
				skipped := Unsupported{Path: leaf.Path(), DataType: leaf.DataType}
				logging.GetRegistryLogger().Info("⚠️ Тип данных не поддерживается: %q (путь %q)", skipped.DataType, skipped.Path)
				if o.onUnsupported != nil {
					o.onUnsupported(skipped)
				}
				continue
			}
			if !yield(Entry{Path: leaf.Path(), DataType: leaf.DataType, Stream: leaf.Stream}) {
				return
			}
		}
	}
}
