package recording

import (
	"fmt"
	"slices"
)

// Kind: вид узла контейнера
type Kind uint8

const (
	KindLeaf    Kind = iota // Поток
	KindKeyed               // Именованные дочерние узлы (каналы, типы данных)
	KindIndexed             // Список узлов (сегменты записи)
)

// String возвращает имя вида узла
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindKeyed:
		return "keyed"
	case KindIndexed:
		return "indexed"
	default:
		return "unknown"
	}
}

// Container: узел вложенной структуры записи.
// Ровно одно из полей заполнено в зависимости от kind.
type Container struct {
	kind     Kind
	leaf     *Stream
	keys     []string
	children map[string]*Container
	items    []*Container
}

// NewLeaf оборачивает поток в узел контейнера
func NewLeaf(s *Stream) *Container {
	return &Container{kind: KindLeaf, leaf: s}
}

// NewKeyed создаёт пустой именованный узел
func NewKeyed() *Container {
	return &Container{kind: KindKeyed, children: make(map[string]*Container)}
}

// NewIndexed создаёт список узлов
func NewIndexed(items ...*Container) *Container {
	return &Container{kind: KindIndexed, items: items}
}

// Channel собирает канал из пар "тип данных -> поток" в порядке имён.
func Channel(streams map[string]*Stream) *Container {
	c := NewKeyed()
	names := make([]string, 0, len(streams))
	for name := range streams {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		c.Set(name, NewLeaf(streams[name]))
	}
	return c
}

// Kind возвращает вид узла
func (c *Container) Kind() Kind { return c.kind }

// Stream возвращает поток листа (nil для остальных видов)
func (c *Container) Stream() *Stream { return c.leaf }

// Items возвращает элементы списка
func (c *Container) Items() []*Container { return c.items }

// Keys возвращает ключи в порядке добавления
func (c *Container) Keys() []string { return c.keys }

// Get возвращает дочерний узел по ключу
func (c *Container) Get(key string) (*Container, bool) {
	child, ok := c.children[key]
	return child, ok
}

// Set добавляет или заменяет дочерний узел; порядок ключей сохраняется.
func (c *Container) Set(key string, child *Container) *Container {
	if _, exists := c.children[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.children[key] = child
	return c
}

// Delete удаляет дочерний узел по ключу
func (c *Container) Delete(key string) {
	if _, exists := c.children[key]; !exists {
		return
	}
	delete(c.children, key)
	c.keys = slices.DeleteFunc(c.keys, func(k string) bool { return k == key })
}

// Append добавляет элемент в список
func (c *Container) Append(item *Container) *Container {
	c.items = append(c.items, item)
	return c
}

// Leaves обходит все потоки контейнера в глубину, в порядке ключей и индексов.
func (c *Container) Leaves(fn func(s *Stream)) {
	if c == nil {
		return
	}
	switch c.kind {
	case KindLeaf:
		if c.leaf != nil {
			fn(c.leaf)
		}
	case KindKeyed:
		for _, key := range c.keys {
			c.children[key].Leaves(fn)
		}
	case KindIndexed:
		for _, item := range c.items {
			item.Leaves(fn)
		}
	}
}

// Map строит новый контейнер той же формы, заменяя каждый поток результатом fn.
// Пустой (nil) узел в любом месте дерева даёт ErrInvalidInput.
func (c *Container) Map(fn func(s *Stream) (*Stream, error)) (*Container, error) {
	if c == nil {
		return nil, fmt.Errorf("nil node: %w", ErrInvalidInput)
	}
	switch c.kind {
	case KindLeaf:
		s, err := fn(c.leaf)
		if err != nil {
			return nil, err
		}
		return NewLeaf(s), nil
	case KindKeyed:
		out := NewKeyed()
		for _, key := range c.keys {
			child, err := c.children[key].Map(fn)
			if err != nil {
				return nil, err
			}
			out.Set(key, child)
		}
		return out, nil
	default:
		out := NewIndexed()
		for _, item := range c.items {
			child, err := item.Map(fn)
			if err != nil {
				return nil, err
			}
			out.Append(child)
		}
		return out, nil
	}
}

// Info: метаданные записи
type Info struct {
	Path      string         `json:"path,omitempty"`
	StartTime *float64       `json:"start_time,omitempty"`
	StopTime  *float64       `json:"stop_time,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// Clone возвращает независимую копию метаданных
func (i Info) Clone() Info {
	out := Info{Path: i.Path}
	if i.StartTime != nil {
		v := *i.StartTime
		out.StartTime = &v
	}
	if i.StopTime != nil {
		v := *i.StopTime
		out.StopTime = &v
	}
	if i.Attrs != nil {
		out.Attrs = make(map[string]any, len(i.Attrs))
		for k, v := range i.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Recording: контейнер вместе с метаданными записи
type Recording struct {
	Info Info
	Data *Container
}
