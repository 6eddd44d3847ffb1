// Package render converts decoded rasters into forms an image encoder
// wants: exact palettes, palette quantization, pattern tiling, and
// integer upscaling.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"sort"

	clr "github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// ExactPalette collects the distinct colors of img. When they fit in 256
// entries it returns them as a palette in a deterministic order (sorted
// by packed RGB value) and true; otherwise nil and false, and the image
// should be written as direct color.
func ExactPalette(img image.Image) (color.Palette, bool) {
	seen := make(map[uint32]struct{})
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			seen[packRGB(img.At(x, y))] = struct{}{}
			if len(seen) > 256 {
				return nil, false
			}
		}
	}

	packed := make([]uint32, 0, len(seen))
	for p := range seen {
		packed = append(packed, p)
	}
	sort.Slice(packed, func(i, j int) bool { return packed[i] < packed[j] })

	pal := make(color.Palette, len(packed))
	for i, p := range packed {
		pal[i] = color.RGBA{uint8(p >> 16), uint8(p >> 8), uint8(p), 0xFF}
	}
	return pal, true
}

// Quantize maps img onto pal, choosing for each pixel the perceptually
// nearest palette entry by Lab distance.
func Quantize(img image.Image, pal color.Palette) *image.Paletted {
	bounds := img.Bounds()
	out := image.NewPaletted(bounds, pal)

	labs := make([]clr.Color, len(pal))
	for i, c := range pal {
		labs[i], _ = clr.MakeColor(c)
	}

	cache := make(map[uint32]uint8)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			key := packRGB(c)
			idx, ok := cache[key]
			if !ok {
				idx = nearest(labs, c)
				cache[key] = idx
			}
			out.SetColorIndex(x, y, idx)
		}
	}
	return out
}

func nearest(pal []clr.Color, c color.Color) uint8 {
	target, ok := clr.MakeColor(c)
	if !ok {
		return 0
	}
	best, bestDist := 0, -1.0
	for i, p := range pal {
		d := target.DistanceLab(p)
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// Tile fills a w-by-h canvas by repeating the pattern, anchored at the
// top-left corner. Fill patterns tile this way when painted over a
// larger area.
func Tile(pattern image.Image, w, h int) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	pb := pattern.Bounds()
	pw, ph := pb.Dx(), pb.Dy()
	if pw <= 0 || ph <= 0 {
		return out
	}
	for y := 0; y < h; y += ph {
		for x := 0; x < w; x += pw {
			r := image.Rect(x, y, x+pw, y+ph).Intersect(out.Bounds())
			draw.Draw(out, r, pattern, pb.Min, draw.Src)
		}
	}
	return out
}

// Scale upscales img by an integer factor with nearest-neighbor
// sampling, keeping pixel art crisp.
func Scale(img image.Image, factor int) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), img, bounds, xdraw.Src, nil)
	return out
}

func packRGB(c color.Color) uint32 {
	r, g, b, _ := c.RGBA()
	return (r>>8)<<16 | (g>>8)<<8 | b>>8
}
