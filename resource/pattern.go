package resource

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"

	"github.com/32bitkid/bitreader"
)

// Pixel-pattern (ppat) layouts. Type 0 inlines the pixel map at a fixed
// position with pixel data at offset 74; type 1 stores explicit offsets
// to the pixel map and pixel data.
const (
	patternTypeIndexed = 0
	patternTypeFull    = 1

	patternInlinePixMap = 2
	patternInlineData   = 74
)

// A TableLocator finds the byte offset of a pattern's color table when
// the layout does not state it. It reports the offset and whether a
// plausible table was found.
type TableLocator func(data []byte, from int) (int, bool)

// ScanTableLocator is the default locator for type-0 patterns: scan
// forward from the start of pixel data for the first position whose
// would-be size-minus-one field falls in [0,255]. This is a heuristic,
// not a structural fact of the format; it is what the layout leaves us.
func ScanTableLocator(data []byte, from int) (int, bool) {
	for i := from; i+8 <= len(data); i++ {
		size := int16(binary.BigEndian.Uint16(data[i+6:]))
		if size >= 0 && size <= 255 {
			return i, true
		}
	}
	return 0, false
}

// DecodePattern decodes a ppat resource into an indexed raster using the
// default color-table locator.
func DecodePattern(data []byte) (*image.Paletted, error) {
	return DecodePatternWith(data, ScanTableLocator)
}

// DecodePatternWith decodes a ppat resource, using locate to find the
// color table of type-0 patterns.
func DecodePatternWith(data []byte, locate TableLocator) (*image.Paletted, error) {
	patType, ok := be16(data, 0)
	if !ok {
		return nil, FormatError("pattern shorter than its type field")
	}

	var pmOffset, dataStart int
	switch int16(patType) {
	case patternTypeIndexed:
		pmOffset = patternInlinePixMap
		dataStart = patternInlineData
	case patternTypeFull:
		pm32, ok1 := be32(data, 2)
		px32, ok2 := be32(data, 6)
		if !ok1 || !ok2 {
			return nil, FormatError("pattern shorter than its offset fields")
		}
		pmOffset, dataStart = int(pm32), int(px32)
		if pmOffset+50 > len(data) || dataStart >= len(data) {
			return nil, FormatError("pattern offsets outside resource")
		}
	default:
		return nil, UnsupportedError(fmt.Sprintf("pattern type %d", int16(patType)))
	}

	rowBytesRaw, ok := be16(data, pmOffset+4)
	if !ok {
		return nil, TruncatedError("pattern pixel map extends past end of resource")
	}
	rowBytes := int(rowBytesRaw & 0x3FFF)
	bounds, ok := parseRect(data, pmOffset+6)
	if !ok {
		return nil, TruncatedError("pattern bounds extend past end of resource")
	}
	pixelSize, ok := be16(data, pmOffset+32)
	if !ok {
		return nil, TruncatedError("pattern pixel size extends past end of resource")
	}

	width, height := bounds.width(), bounds.height()
	if width <= 0 || height <= 0 || rowBytes <= 0 {
		return nil, FormatError("empty pattern bounds")
	}
	if dataStart+height*rowBytes > len(data) {
		return nil, TruncatedError("pattern pixel data extends past end of resource")
	}
	if width*int(pixelSize) > rowBytes*8 {
		return nil, FormatError("pattern bounds wider than its row stride")
	}

	var ctOffset int
	if int16(patType) == patternTypeIndexed {
		off, found := locate(data, patternInlineData)
		if !found {
			return nil, FormatError("no color table found after pattern pixel data")
		}
		ctOffset = off
	} else {
		// The table sits immediately after the pixel data; validate it the
		// same way the locator would.
		ctOffset = dataStart + height*rowBytes
		size, ok := be16(data, ctOffset+6)
		if !ok || int16(size) < 0 || int16(size) > 255 {
			return nil, FormatError("no color table after pattern pixel data")
		}
	}

	table, err := parseColorTable(data, ctOffset)
	if err != nil {
		return nil, err
	}
	colors := table.tableOrder()

	img := image.NewPaletted(image.Rect(0, 0, width, height), outputPalette(colors))
	switch pixelSize {
	case 8:
		for y := 0; y < height; y++ {
			row := data[dataStart+y*rowBytes:]
			for x := 0; x < width; x++ {
				img.Pix[y*img.Stride+x] = remapIndex(colors, int(row[x]))
			}
		}
	case 4:
		// Two pixels per byte, high nibble first.
		for y := 0; y < height; y++ {
			row := data[dataStart+y*rowBytes : dataStart+(y+1)*rowBytes]
			bits := bitreader.NewReader(bytes.NewReader(row))
			for x := 0; x < width; x++ {
				idx, err := bits.Read8(4)
				if err != nil {
					return nil, TruncatedError("pattern row narrower than its bounds")
				}
				img.Pix[y*img.Stride+x] = remapIndex(colors, int(idx))
			}
		}
	default:
		return nil, UnsupportedError(fmt.Sprintf("pattern pixel size %d", pixelSize))
	}

	return img, nil
}
