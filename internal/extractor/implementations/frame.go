package implementations

import (
	"fmt"

	"github.com/annel0/sensor-playback/internal/extractor"
	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/timeindex"
)

// FrameExtractor показывает последний кадр, снятый не позже t
type FrameExtractor struct {
	ts     []float64
	frames recording.Frames
	width  int
	height int
	format extractor.ColorFormat
}

// NewFrameExtractor требует столбец frames с кадрами одного размера и формата
func NewFrameExtractor(s *recording.Stream) (extractor.Extractor, error) {
	if err := s.CheckShape(); err != nil {
		return nil, err
	}
	frames, ok := s.Frames(recording.FieldFrames)
	if !ok {
		return nil, fmt.Errorf("frame stream needs a frames column: %w", recording.ErrInvalidInput)
	}

	e := &FrameExtractor{ts: s.Ts, frames: frames, format: extractor.Luminance}
	e.width, _ = s.AttrInt(recording.AttrDimX)
	e.height, _ = s.AttrInt(recording.AttrDimY)
	if len(frames) > 0 {
		e.width, e.height = frames[0].Width, frames[0].Height
		if frames[0].Channels == 3 {
			e.format = extractor.RGB
		}
	}
	if e.width <= 0 || e.height <= 0 {
		e.width, e.height = 1, 1
	}
	return e, nil
}

func (e *FrameExtractor) Dims() (int, int)                  { return e.width, e.height }
func (e *FrameExtractor) ColorFormat() extractor.ColorFormat { return e.format }

// Frame игнорирует окно: показывается кадр, актуальный на момент t.
// До первого кадра возвращается пустой кадр.
func (e *FrameExtractor) Frame(t, _ float64, _ extractor.Options) (*extractor.Image, error) {
	img := extractor.NewImage(e.width, e.height, e.format)
	idx := timeindex.Floor(e.ts, t)
	if idx < 0 {
		return img, nil
	}

	src := e.frames[idx]
	if src.Width != e.width || src.Height != e.height {
		return nil, fmt.Errorf("frame %d is %dx%d, expected %dx%d", idx, src.Width, src.Height, e.width, e.height)
	}

	switch {
	case src.Channels == e.format.BytesPerPixel():
		copy(img.Pix, src.Pix)
	case src.Channels == 1 && e.format == extractor.RGB:
		for i, v := range src.Pix {
			img.Pix[3*i], img.Pix[3*i+1], img.Pix[3*i+2] = v, v, v
		}
	case src.Channels == 3 && e.format == extractor.Luminance:
		for i := range img.Pix {
			r, g, b := int(src.Pix[3*i]), int(src.Pix[3*i+1]), int(src.Pix[3*i+2])
			img.Pix[i] = uint8((299*r + 587*g + 114*b) / 1000)
		}
	default:
		return nil, fmt.Errorf("frame %d has unsupported channel count %d", idx, src.Channels)
	}
	return img, nil
}
