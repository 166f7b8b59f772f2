package stego

import (
	"image"
	"image/color"
	"image/gif"
	"io"
	"strings"

	"octocart/internal/services"
)

// Frame is one animation frame: its pixel index buffer in row order and an
// optional frame-local palette.
type Frame struct {
	Pixels  []uint8
	Palette Palette
}

// Container yields frames in display order. NextFrame returns io.EOF once the
// frames are exhausted.
type Container interface {
	GlobalPalette() Palette
	NextFrame() (Frame, error)
}

// SliceContainer serves frames that are already in memory.
type SliceContainer struct {
	Global Palette
	Frames []Frame

	next int
}

// GlobalPalette returns the container-wide palette, which may be nil.
func (c *SliceContainer) GlobalPalette() Palette {
	return c.Global
}

// NextFrame returns the next frame or io.EOF.
func (c *SliceContainer) NextFrame() (Frame, error) {
	if c.next >= len(c.Frames) {
		return Frame{}, io.EOF
	}
	frame := c.Frames[c.next]
	c.next++
	return frame, nil
}

type gifContainer struct {
	global Palette
	raw    color.Palette
	images []*image.Paletted
	next   int
}

// NewGIFContainer reads a GIF image and exposes its frames. Frames that reuse
// the global color table report a nil Palette so the global one is applied.
func NewGIFContainer(r io.Reader) (Container, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		if paletteFailure(err) {
			return nil, services.Wrap(services.ErrPalette, "stego", "read gif", "", err)
		}
		return nil, services.Wrap(services.ErrContainer, "stego", "read gif", "", err)
	}
	raw, _ := g.Config.ColorModel.(color.Palette)
	return &gifContainer{
		global: PaletteFromColors(raw),
		raw:    raw,
		images: g.Image,
	}, nil
}

func (c *gifContainer) GlobalPalette() Palette {
	return c.global
}

func (c *gifContainer) NextFrame() (Frame, error) {
	if c.next >= len(c.images) {
		return Frame{}, io.EOF
	}
	img := c.images[c.next]
	c.next++

	frame := Frame{Pixels: framePixels(img)}
	if !sharesTable(img.Palette, c.raw) {
		frame.Palette = PaletteFromColors(img.Palette)
	}
	return frame, nil
}

// image/gif checks color tables while decoding and only reports these cases
// as unexported errors.
func paletteFailure(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "gif: no color table") ||
		strings.Contains(msg, "gif: invalid pixel value")
}

// framePixels returns the frame's index buffer in row order, compacting the
// rows when the stride is wider than the frame.
func framePixels(img *image.Paletted) []uint8 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if img.Stride == width {
		return img.Pix[:width*height]
	}
	out := make([]uint8, 0, width*height)
	for y := 0; y < height; y++ {
		start := y * img.Stride
		out = append(out, img.Pix[start:start+width]...)
	}
	return out
}

// image/gif hands frames without a local color table the global table itself.
func sharesTable(frame, global color.Palette) bool {
	if len(frame) == 0 || len(global) == 0 || len(frame) != len(global) {
		return false
	}
	return &frame[0] == &global[0]
}
