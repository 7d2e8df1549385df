// Package codec сохраняет и читает уже разобранные записи в JSON (опционально со сжатием zstd).
// Это формат обмена для CLI-утилит и тестов, а не формат сенсоров.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/klauspost/compress/zstd"
)

// ZstdSuffix: файлы с этим суффиксом сжимаются zstd
const ZstdSuffix = ".zst"

// ErrFormat: файл не соответствует формату дампа
var ErrFormat = errors.New("malformed recording dump")

const (
	kindInts    = "ints"
	kindFloats  = "floats"
	kindVectors = "vectors"
	kindFrames  = "frames"
)

type wireFrame struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Channels int    `json:"channels"`
	Pix      []byte `json:"pix"`
}

type wireColumn struct {
	Kind   string      `json:"kind"`
	Ints   []int64     `json:"ints,omitempty"`
	Floats []float64   `json:"floats,omitempty"`
	Width  int         `json:"width,omitempty"`
	Frames []wireFrame `json:"frames,omitempty"`
}

type wireStream struct {
	Ts       []float64             `json:"ts"`
	TsOffset float64               `json:"tsOffset"`
	Columns  map[string]wireColumn `json:"columns,omitempty"`
	Attrs    map[string]any        `json:"attrs,omitempty"`
}

// wireNode хранит ключи отдельным списком, чтобы сохранить порядок каналов
type wireNode struct {
	Kind     string      `json:"kind"`
	Stream   *wireStream `json:"stream,omitempty"`
	Keys     []string    `json:"keys,omitempty"`
	Children []wireNode  `json:"children,omitempty"`
}

type wireRecording struct {
	Path      string         `json:"path,omitempty"`
	StartTime *float64       `json:"startTime,omitempty"`
	StopTime  *float64       `json:"stopTime,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	Data      wireNode       `json:"data"`
}

// Encode пишет запись в JSON
func Encode(w io.Writer, rec *recording.Recording) error {
	if rec == nil {
		return fmt.Errorf("encode nil recording: %w", recording.ErrInvalidInput)
	}
	node, err := encodeNode(rec.Data)
	if err != nil {
		return err
	}
	out := wireRecording{
		Path:      rec.Info.Path,
		StartTime: rec.Info.StartTime,
		StopTime:  rec.Info.StopTime,
		Attrs:     rec.Info.Attrs,
		Data:      node,
	}
	return json.NewEncoder(w).Encode(out)
}

func encodeNode(c *recording.Container) (wireNode, error) {
	if c == nil {
		return wireNode{Kind: recording.KindKeyed.String()}, nil
	}
	n := wireNode{Kind: c.Kind().String()}
	switch c.Kind() {
	case recording.KindLeaf:
		if c.Stream() != nil {
			ws, err := encodeStream(c.Stream())
			if err != nil {
				return n, err
			}
			n.Stream = &ws
		}
	case recording.KindKeyed:
		for _, key := range c.Keys() {
			child, _ := c.Get(key)
			cn, err := encodeNode(child)
			if err != nil {
				return n, fmt.Errorf("%s: %w", key, err)
			}
			n.Keys = append(n.Keys, key)
			n.Children = append(n.Children, cn)
		}
	case recording.KindIndexed:
		for i, item := range c.Items() {
			cn, err := encodeNode(item)
			if err != nil {
				return n, fmt.Errorf("[%d]: %w", i, err)
			}
			n.Children = append(n.Children, cn)
		}
	}
	return n, nil
}

func encodeStream(s *recording.Stream) (wireStream, error) {
	ws := wireStream{Ts: s.Ts, TsOffset: s.TsOffset, Attrs: s.Attrs, Columns: make(map[string]wireColumn, len(s.Columns))}
	for name, col := range s.Columns {
		var wc wireColumn
		switch c := col.(type) {
		case recording.Ints:
			wc = wireColumn{Kind: kindInts, Ints: c}
		case recording.Floats:
			wc = wireColumn{Kind: kindFloats, Floats: c}
		case recording.Vectors:
			wc = wireColumn{Kind: kindVectors, Width: c.Width, Floats: c.Data}
		case recording.Frames:
			wc = wireColumn{Kind: kindFrames, Frames: make([]wireFrame, len(c))}
			for i, f := range c {
				wc.Frames[i] = wireFrame{Width: f.Width, Height: f.Height, Channels: f.Channels, Pix: f.Pix}
			}
		default:
			return ws, fmt.Errorf("column %q has unsupported type %T", name, col)
		}
		ws.Columns[name] = wc
	}
	return ws, nil
}

// Decode читает запись из JSON
func Decode(r io.Reader) (*recording.Recording, error) {
	var in wireRecording
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	data, err := decodeNode(in.Data)
	if err != nil {
		return nil, err
	}
	return &recording.Recording{
		Info: recording.Info{Path: in.Path, StartTime: in.StartTime, StopTime: in.StopTime, Attrs: in.Attrs},
		Data: data,
	}, nil
}

func decodeNode(n wireNode) (*recording.Container, error) {
	switch n.Kind {
	case recording.KindLeaf.String():
		if n.Stream == nil {
			return recording.NewLeaf(nil), nil
		}
		s, err := decodeStream(*n.Stream)
		if err != nil {
			return nil, err
		}
		return recording.NewLeaf(s), nil
	case recording.KindKeyed.String():
		if len(n.Keys) != len(n.Children) {
			return nil, fmt.Errorf("%w: %d keys for %d children", ErrFormat, len(n.Keys), len(n.Children))
		}
		c := recording.NewKeyed()
		for i, key := range n.Keys {
			child, err := decodeNode(n.Children[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			c.Set(key, child)
		}
		return c, nil
	case recording.KindIndexed.String():
		c := recording.NewIndexed()
		for i, cn := range n.Children {
			child, err := decodeNode(cn)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			c.Append(child)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown node kind %q", ErrFormat, n.Kind)
	}
}

func decodeStream(ws wireStream) (*recording.Stream, error) {
	if ws.Ts == nil {
		return nil, fmt.Errorf("%w: stream has no ts", ErrFormat)
	}
	s := recording.NewStream(ws.Ts)
	s.TsOffset = ws.TsOffset
	for k, v := range ws.Attrs {
		s.Attrs[k] = v
	}
	for name, wc := range ws.Columns {
		switch wc.Kind {
		case kindInts:
			s.Columns[name] = recording.Ints(orEmpty(wc.Ints))
		case kindFloats:
			s.Columns[name] = recording.Floats(orEmpty(wc.Floats))
		case kindVectors:
			s.Columns[name] = recording.Vectors{Width: wc.Width, Data: orEmpty(wc.Floats)}
		case kindFrames:
			frames := make(recording.Frames, len(wc.Frames))
			for i, f := range wc.Frames {
				frames[i] = recording.Image{Width: f.Width, Height: f.Height, Channels: f.Channels, Pix: f.Pix}
			}
			s.Columns[name] = frames
		default:
			return nil, fmt.Errorf("%w: column %q has unknown kind %q", ErrFormat, name, wc.Kind)
		}
	}
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	return s, nil
}

func orEmpty[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// WriteFile сохраняет запись; путь с суффиксом .zst сжимается zstd
func WriteFile(path string, rec *recording.Recording) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, ZstdSuffix) {
		return Encode(f, rec)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if err := Encode(enc, rec); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadFile читает запись, сохранённую WriteFile
func ReadFile(path string) (*recording.Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(path, ZstdSuffix) {
		return Decode(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return Decode(dec)
}
