package testsupport

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"octocart/internal/stego"
)

// NybblePalette returns a 16-entry palette whose index i carries nybble i.
// The high bits of every channel are set so the colors are not trivially
// black; only the low bits matter to the decoder.
func NybblePalette() stego.Palette {
	p := make(stego.Palette, 16)
	for i := range p {
		n := uint8(i)
		p[i] = stego.RGB{
			R: 0xA0 | (n>>3)&1,
			G: 0x50 | (n>>1)&3,
			B: 0xC0 | n&1,
		}
	}
	return p
}

// InvertedPalette returns a 16-entry palette whose index i carries nybble 15-i.
func InvertedPalette() stego.Palette {
	base := NybblePalette()
	p := make(stego.Palette, len(base))
	for i := range p {
		p[i] = base[len(base)-1-i]
	}
	return p
}

// Payload prefixes body with its big-endian length header.
func Payload(body []byte) []byte {
	out := make([]byte, stego.HeaderBytes, stego.HeaderBytes+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	return append(out, body...)
}

// EncodeBytes converts data into pixel indices for palette p, two pixels per
// byte, high nybble first. It panics if p cannot express every nybble.
func EncodeBytes(data []byte, p stego.Palette) []uint8 {
	lookup := nybbleIndex(p)
	out := make([]uint8, 0, len(data)*2)
	for _, b := range data {
		out = append(out, lookup[b>>4], lookup[b&0x0F])
	}
	return out
}

func nybbleIndex(p stego.Palette) [16]uint8 {
	var lookup [16]uint8
	var seen [16]bool
	for i, c := range p {
		n := stego.Nybble(c)
		if !seen[n] {
			lookup[n] = uint8(i)
			seen[n] = true
		}
	}
	for _, ok := range seen {
		if !ok {
			panic("palette cannot express every nybble")
		}
	}
	return lookup
}

// SplitFrames cuts pixels into frames of the given sizes. Whatever remains
// after the listed sizes becomes a final frame.
func SplitFrames(pixels []uint8, sizes ...int) [][]uint8 {
	frames := make([][]uint8, 0, len(sizes)+1)
	for _, size := range sizes {
		if size > len(pixels) {
			size = len(pixels)
		}
		frames = append(frames, pixels[:size])
		pixels = pixels[size:]
	}
	if len(pixels) > 0 {
		frames = append(frames, pixels)
	}
	return frames
}

// NewCart hides body in a container using the global NybblePalette, split
// into frames of the given pixel counts.
func NewCart(body []byte, sizes ...int) *stego.SliceContainer {
	global := NybblePalette()
	pixels := EncodeBytes(Payload(body), global)
	container := &stego.SliceContainer{Global: global}
	for _, chunk := range SplitFrames(pixels, sizes...) {
		container.Frames = append(container.Frames, stego.Frame{Pixels: chunk})
	}
	return container
}

// EncodeGIF renders the container's frames as a GIF image. Each frame is a
// single row of pixels. Frames without a local palette reuse the global
// color table.
func EncodeGIF(c *stego.SliceContainer) ([]byte, error) {
	global := toColors(c.Global)
	width := 1
	for _, frame := range c.Frames {
		if len(frame.Pixels) > width {
			width = len(frame.Pixels)
		}
	}

	anim := &gif.GIF{
		Delay: make([]int, len(c.Frames)),
		Config: image.Config{
			Width:  width,
			Height: 1,
		},
	}
	if len(global) > 0 {
		anim.Config.ColorModel = global
	}
	for _, frame := range c.Frames {
		palette := global
		if len(frame.Palette) > 0 {
			palette = toColors(frame.Palette)
		}
		img := image.NewPaletted(image.Rect(0, 0, len(frame.Pixels), 1), palette)
		copy(img.Pix, frame.Pixels)
		anim.Image = append(anim.Image, img)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGIF encodes the container to path, failing the test on error.
func WriteGIF(t testing.TB, path string, c *stego.SliceContainer) {
	t.Helper()

	data, err := EncodeGIF(c)
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	WriteFile(t, path, data)
}

func toColors(p stego.Palette) color.Palette {
	if len(p) == 0 {
		return nil
	}
	out := make(color.Palette, len(p))
	for i, c := range p {
		out[i] = color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
	}
	return out
}

// MinimalCartJSON is a complete cartridge document with every option set.
const MinimalCartJSON = `{"program":": main\n  loop again","options":{"tickrate":7,"fillColor":"#FFCC00","fillColor2":"#FF6600","blendColor":"#662200","backgroundColor":"#996600","buzzColor":"#FFAA00","quietColor":"#000000","shiftQuirks":false,"loadStoreQuirks":false,"vfOrderQuirks":false,"clipQuirks":true,"vBlankQuirks":true,"jumpQuirks":false,"screenRotation":0,"maxSize":3215,"touchInputMode":"none","logicQuirks":true,"fontStyle":"octo"}}`
