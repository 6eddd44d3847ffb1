package resource

import "image/color"

// Index 255 of every indexed raster this package produces is pure black,
// and any pixel whose source color is pure black is written as 255. This
// is an output contract relied on by downstream consumers, not a property
// of the container formats.
const BlackIndex = 255

func isBlack(c color.RGBA) bool { return c.R == 0 && c.G == 0 && c.B == 0 }

// outputPalette builds the 256-entry palette for an indexed raster:
// source colors keep their table positions, unused slots are black, and
// slot 255 is forced to black.
func outputPalette(colors []color.RGBA) color.Palette {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.RGBA{0, 0, 0, 0xFF}
	}
	for i, c := range colors {
		if i < 256 {
			pal[i] = c
		}
	}
	pal[BlackIndex] = color.RGBA{0, 0, 0, 0xFF}
	return pal
}

// remapIndex applies the output convention to one pixel: black source
// colors and out-of-table indices map to BlackIndex, everything else
// keeps its natural position.
func remapIndex(colors []color.RGBA, idx int) uint8 {
	if idx < 0 || idx >= len(colors) || isBlack(colors[idx]) {
		return BlackIndex
	}
	return uint8(idx)
}
