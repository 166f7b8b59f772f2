package stego

import (
	"fmt"
	"image/color"

	"octocart/internal/services"
)

// MaxPaletteEntries is the largest color table a GIF frame can carry.
const MaxPaletteEntries = 256

// RGB is a single palette entry. Only the low bits of each channel carry
// payload data.
type RGB struct {
	R, G, B uint8
}

// Palette is an ordered color table indexed by pixel values.
type Palette []RGB

// Color resolves a pixel index to its RGB triple. An index outside the table
// means the container is malformed.
func (p Palette) Color(index uint8) (RGB, error) {
	if int(index) >= len(p) {
		return RGB{}, services.Wrap(services.ErrPalette, "stego", "sample color",
			fmt.Sprintf("pixel index %d outside palette of %d entries", index, len(p)), nil)
	}
	return p[index], nil
}

// EffectivePalette selects the palette used for a frame: the frame-local
// palette when present, otherwise the container-wide one.
func EffectivePalette(local, global Palette) (Palette, error) {
	if len(local) > 0 {
		return local, nil
	}
	if len(global) > 0 {
		return global, nil
	}
	return nil, services.Wrap(services.ErrPalette, "stego", "resolve palette",
		"frame has no local palette and container has no global palette", nil)
}

// PaletteFromColors converts a standard library color palette. Entries are
// reduced to 8-bit channels; alpha is discarded.
func PaletteFromColors(colors color.Palette) Palette {
	if len(colors) == 0 {
		return nil
	}
	out := make(Palette, len(colors))
	for i, c := range colors {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		out[i] = RGB{R: rgba.R, G: rgba.G, B: rgba.B}
	}
	return out
}
