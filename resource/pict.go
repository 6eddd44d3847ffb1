package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/32bitkid/bitreader"

	"macassets/decompression"
)

// ErrNoRaster reports that a picture's opcode stream ended, or reached an
// opcode this decoder does not recognize, before any raster-bearing
// opcode was decoded. It is distinct from a decode failure: the picture
// may be a pure vector drawing with nothing to rasterize.
var ErrNoRaster = errors.New("resource: picture contains no raster data")

// Frame rectangles beyond this extent are treated as corrupt.
const maxPictureExtent = 2000

// Picture opcodes that carry raster data. The low byte is shared between
// the version-1 (single byte) and version-2 (word) grammars.
const (
	opBitsRect       = 0x90
	opBitsRgn        = 0x91
	opPackBitsRect   = 0x98
	opPackBitsRgn    = 0x99
	opDirectBitsRect = 0x9A
	opDirectBitsRgn  = 0x9B
	opEndPic         = 0xFF
)

// DecodePicture decodes a PICT resource (version 1 or 2) into a raster
// image. Indexed content decodes to *image.Paletted under the
// index-255-is-black convention; direct content decodes to *image.RGBA.
// The walk stops quietly at the first unrecognized opcode, returning
// whatever raster was produced; ErrNoRaster reports that there was none.
func DecodePicture(data []byte) (image.Image, error) {
	// 2-byte size word (unreliable for version 2), then the frame.
	frame, ok := parseRect(data, 2)
	if !ok {
		return nil, FormatError("picture shorter than its frame rectangle")
	}
	w, h := frame.width(), frame.height()
	if w <= 0 || h <= 0 || w > maxPictureExtent || h > maxPictureExtent {
		return nil, FormatError(fmt.Sprintf("implausible picture frame %dx%d", w, h))
	}

	d := &pictDecoder{data: data, frameW: w, frameH: h}

	// The byte after the frame selects the grammar: a version-1 picture
	// opens with the single-byte picVersion opcode 0x11.
	if len(data) > 10 && data[10] == 0x11 {
		d.walkV1(10)
	} else {
		d.walkV2(10)
	}

	if d.img == nil {
		if d.err != nil {
			return nil, d.err
		}
		return nil, ErrNoRaster
	}
	return d.img, nil
}

type pictDecoder struct {
	data           []byte
	frameW, frameH int
	img            image.Image
	err            error
}

// walkV2 runs the version-2 grammar: big-endian word opcodes, each read
// from an even byte boundary.
func (d *pictDecoder) walkV2(pos int) {
	for {
		pos += pos & 1
		op, ok := be16(d.data, pos)
		if !ok {
			return
		}
		pos += 2

		switch op {
		case 0x00FF:
			return
		case opBitsRect, opBitsRgn:
			pos = d.raster(d.decodeBitmap(pos, op == opBitsRgn, false))
		case opPackBitsRect, opPackBitsRgn:
			pos = d.raster(d.decodePixMap(pos, op == opPackBitsRgn))
		case opDirectBitsRect, opDirectBitsRgn:
			pos = d.raster(d.decodeDirectBits(pos, op == opDirectBitsRgn))
		default:
			var skipped bool
			pos, skipped = skipOp(v2Skips, op, d.data, pos)
			if !skipped {
				return
			}
		}
		if pos < 0 {
			return
		}
	}
}

// walkV1 runs the version-1 grammar: single-byte opcodes, no alignment.
func (d *pictDecoder) walkV1(pos int) {
	for pos < len(d.data) {
		op := uint16(d.data[pos])
		pos++

		switch op {
		case opEndPic:
			return
		case opBitsRect, opBitsRgn:
			pos = d.raster(d.decodeBitmap(pos, op == opBitsRgn, false))
		case opPackBitsRect, opPackBitsRgn:
			pos = d.raster(d.decodeBitmap(pos, op == opPackBitsRgn, true))
		default:
			var skipped bool
			pos, skipped = skipOp(v1Skips, op, d.data, pos)
			if !skipped {
				return
			}
		}
		if pos < 0 {
			return
		}
	}
}

// raster folds a raster-op result into the walk: on failure the walk
// stops, keeping any previously decoded raster.
func (d *pictDecoder) raster(pos int, err error) int {
	if err != nil {
		if d.img == nil {
			d.err = err
		}
		return -1
	}
	return pos
}

// decodeBitmap handles the 1-bit BitMap forms: BitsRect/BitsRgn raw rows,
// and the version-1 PackBitsRect/PackBitsRgn compressed rows.
func (d *pictDecoder) decodeBitmap(pos int, hasRegion, packed bool) (int, error) {
	rowBytesRaw, ok := be16(d.data, pos)
	if !ok {
		return 0, TruncatedError("bitmap header extends past end of picture")
	}
	rowBytes := int(rowBytesRaw & 0x3FFF)
	bounds, ok := parseRect(d.data, pos+2)
	if !ok {
		return 0, TruncatedError("bitmap bounds extend past end of picture")
	}
	pos += 10

	width, height := bounds.width(), bounds.height()
	if width <= 0 || height <= 0 || rowBytes <= 0 {
		return 0, FormatError("empty bitmap bounds")
	}

	pos = d.skipTransferRects(pos, bounds)
	if hasRegion {
		pos, ok = skipRegionAt(d.data, pos)
		if !ok {
			return 0, TruncatedError("bitmap mask region extends past end of picture")
		}
	}

	var rows []byte
	if packed {
		var err error
		rows, pos, err = unpackRows(d.data, pos, rowBytes, height)
		if err != nil {
			return 0, err
		}
	} else {
		if pos+rowBytes*height > len(d.data) {
			return 0, TruncatedError("bitmap rows extend past end of picture")
		}
		rows = d.data[pos : pos+rowBytes*height]
		pos += rowBytes * height
	}

	colors := []color.RGBA{{0xFF, 0xFF, 0xFF, 0xFF}, {0, 0, 0, 0xFF}}
	d.composeIndexed(rows, rowBytes, width, height, 1, colors)
	return pos, nil
}

// decodePixMap handles version-2 PackBitsRect/PackBitsRgn. The high bit
// of the row-stride field marks a PixMap with color table; without it the
// payload is a plain 1-bit bitmap.
func (d *pictDecoder) decodePixMap(pos int, hasRegion bool) (int, error) {
	rowBytesRaw, ok := be16(d.data, pos)
	if !ok {
		return 0, TruncatedError("pixel map header extends past end of picture")
	}
	if rowBytesRaw&0x8000 == 0 {
		return d.decodeBitmap(pos, hasRegion, true)
	}
	rowBytes := int(rowBytesRaw & 0x3FFF)
	bounds, ok := parseRect(d.data, pos+2)
	if !ok {
		return 0, TruncatedError("pixel map bounds extend past end of picture")
	}
	pos += 10

	pm, err := parsePixMap(d.data, pos)
	if err != nil {
		return 0, err
	}
	pos += pixMapSize

	table, err := parseColorTable(d.data, pos)
	if err != nil {
		return 0, err
	}
	pos += table.size()
	colors := table.byIndex()

	width, height := bounds.width(), bounds.height()
	if width <= 0 || height <= 0 || rowBytes <= 0 {
		return 0, FormatError("empty pixel map bounds")
	}

	pos += 8 + 8 + 2 // source/destination rects, transfer mode
	if hasRegion {
		pos, ok = skipRegionAt(d.data, pos)
		if !ok {
			return 0, TruncatedError("pixel map mask region extends past end of picture")
		}
	}

	rows, pos, err := unpackRows(d.data, pos, rowBytes, height)
	if err != nil {
		return 0, err
	}

	switch pm.PixelSize {
	case 1, 2, 4, 8:
		d.composeIndexed(rows, rowBytes, width, height, int(pm.PixelSize), colors)
	default:
		return 0, UnsupportedError(fmt.Sprintf("indexed pixel size %d", pm.PixelSize))
	}
	return pos, nil
}

// decodeDirectBits handles DirectBitsRect/DirectBitsRgn: 16- or 32-bit
// pixels with no color table. Rows are stored raw or PackBits-compressed
// according to the pack type; either way each row carries its length
// prefix.
func (d *pictDecoder) decodeDirectBits(pos int, hasRegion bool) (int, error) {
	pos += 4 // baseAddr, meaningless inside a picture

	rowBytesRaw, ok := be16(d.data, pos)
	if !ok {
		return 0, TruncatedError("direct pixel map header extends past end of picture")
	}
	rowBytes := int(rowBytesRaw & 0x3FFF)
	bounds, ok := parseRect(d.data, pos+2)
	if !ok {
		return 0, TruncatedError("direct pixel map bounds extend past end of picture")
	}
	pos += 10

	pm, err := parsePixMap(d.data, pos)
	if err != nil {
		return 0, err
	}
	pos += pixMapSize

	width, height := bounds.width(), bounds.height()
	if width <= 0 || height <= 0 || rowBytes <= 0 {
		return 0, FormatError("empty direct pixel map bounds")
	}
	if pm.PixelSize != 16 && pm.PixelSize != 32 {
		return 0, UnsupportedError(fmt.Sprintf("direct pixel size %d", pm.PixelSize))
	}

	pos += 8 + 8 + 2 // source/destination rects, transfer mode
	if hasRegion {
		pos, ok = skipRegionAt(d.data, pos)
		if !ok {
			return 0, TruncatedError("direct pixel map mask region extends past end of picture")
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, d.frameW, d.frameH))
	copyW, copyH := min(width, d.frameW), min(height, d.frameH)

	for y := 0; y < height; y++ {
		var rowLen int
		if rowBytes > 250 {
			v, ok := be16(d.data, pos)
			if !ok {
				return 0, TruncatedError("direct row length extends past end of picture")
			}
			rowLen = int(v)
			pos += 2
		} else {
			if pos >= len(d.data) {
				return 0, TruncatedError("direct row length extends past end of picture")
			}
			rowLen = int(d.data[pos])
			pos++
		}
		if pos+rowLen > len(d.data) {
			return 0, TruncatedError("direct row extends past end of picture")
		}

		var row []byte
		if pm.PackType == 0 || pm.PackType == 1 {
			row = d.data[pos : pos+rowLen]
		} else {
			row = make([]byte, rowBytes)
			decompression.UnpackRow(row, d.data[pos:pos+rowLen])
		}
		pos += rowLen

		if y >= copyH {
			continue
		}
		for x := 0; x < copyW; x++ {
			var c color.RGBA
			switch pm.PixelSize {
			case 16:
				if x*2+1 >= len(row) {
					continue
				}
				v := binary.BigEndian.Uint16(row[x*2:])
				// 5-5-5 RGB, left-shifted to 8 bits per channel.
				c = color.RGBA{uint8(v >> 10 & 0x1F << 3), uint8(v >> 5 & 0x1F << 3), uint8(v & 0x1F << 3), 0xFF}
			case 32:
				if x*4+3 >= len(row) {
					continue
				}
				// Packed as 0xxRGB; the first byte is unused.
				c = color.RGBA{row[x*4+1], row[x*4+2], row[x*4+3], 0xFF}
			}
			img.SetRGBA(x, y, c)
		}
	}

	d.img = img
	return pos, nil
}

// skipTransferRects advances past the source/destination rectangles and
// transfer mode that normally follow a bitmap header. A few historical
// pictures omit them; the pair is present only when the next eight bytes
// echo the bounding rectangle.
func (d *pictDecoder) skipTransferRects(pos int, bounds rect) int {
	if next, ok := parseRect(d.data, pos); ok && next == bounds {
		return pos + 8 + 8 + 2
	}
	return pos
}

// unpackRows reads height PackBits-framed rows starting at pos.
func unpackRows(data []byte, pos, rowBytes, height int) ([]byte, int, error) {
	rows, consumed, err := decompression.UnpackRows(rowBytes, height, data[pos:])
	if err != nil {
		return nil, 0, TruncatedError(err.Error())
	}
	return rows, pos + consumed, nil
}

// composeIndexed unpacks depth-bit palette indices from rows and writes
// them onto a frame-sized canvas under the output palette convention.
func (d *pictDecoder) composeIndexed(rows []byte, rowBytes, width, height, depth int, colors []color.RGBA) {
	img := image.NewPaletted(image.Rect(0, 0, d.frameW, d.frameH), outputPalette(colors))
	for i := range img.Pix {
		img.Pix[i] = BlackIndex
	}

	copyW, copyH := min(width, d.frameW), min(height, d.frameH)
	for y := 0; y < copyH; y++ {
		row := rows[y*rowBytes : (y+1)*rowBytes]
		if depth == 8 {
			for x := 0; x < copyW && x < len(row); x++ {
				img.Pix[y*img.Stride+x] = remapIndex(colors, int(row[x]))
			}
			continue
		}
		bits := bitreader.NewReader(bytes.NewReader(row))
		for x := 0; x < copyW; x++ {
			idx, err := bits.Read8(uint(depth))
			if err != nil {
				break
			}
			img.Pix[y*img.Stride+x] = remapIndex(colors, int(idx))
		}
	}
	d.img = img
}

// skipKind describes how a state-only opcode's payload is measured.
type skipKind uint8

const (
	skipFixed   skipKind = iota // pre bytes, nothing else
	skipRegion                  // 16-bit length that counts itself
	skipData16                  // pre bytes, 16-bit length, then that many bytes
	skipData32                  // pre bytes, 32-bit length, then that many bytes
	skipPString                 // pre bytes, then a length-prefixed string
	skipPixPat                  // embedded pixel pattern
)

// A skipRule covers a contiguous opcode range sharing one payload shape.
type skipRule struct {
	lo, hi uint16
	kind   skipKind
	pre    int
}

// Version-2 state-only opcodes. Pen, text, and color state, clip regions,
// framed shapes, comments, and the reserved ranges all fall through here;
// none of them affect the raster.
var v2Skips = []skipRule{
	{0x0000, 0x0000, skipFixed, 0},  // NOP
	{0x0001, 0x0001, skipRegion, 0}, // Clip
	{0x0002, 0x0002, skipFixed, 8},  // BkPat
	{0x0003, 0x0003, skipFixed, 2},  // TxFont
	{0x0004, 0x0004, skipFixed, 1},  // TxFace
	{0x0005, 0x0005, skipFixed, 2},  // TxMode
	{0x0006, 0x0007, skipFixed, 4},  // SpExtra, PnSize
	{0x0008, 0x0008, skipFixed, 2},  // PnMode
	{0x0009, 0x000A, skipFixed, 8},  // PnPat, FillPat
	{0x000B, 0x000C, skipFixed, 4},  // OvSize, Origin
	{0x000D, 0x000D, skipFixed, 2},  // TxSize
	{0x000E, 0x000F, skipFixed, 4},  // FgColor, BkColor
	{0x0010, 0x0010, skipFixed, 8},  // TxRatio
	{0x0011, 0x0011, skipFixed, 2},  // VersionOp
	{0x0012, 0x0014, skipPixPat, 0}, // BkPixPat, PnPixPat, FillPixPat
	{0x0015, 0x0016, skipFixed, 2},  // PnLocHFrac, ChExtra
	{0x001A, 0x001B, skipFixed, 6},  // RGBFgCol, RGBBkCol
	{0x001C, 0x001C, skipFixed, 0},  // HiliteMode
	{0x001D, 0x001D, skipFixed, 6},  // HiliteColor
	{0x001E, 0x001E, skipFixed, 0},  // DefHilite
	{0x001F, 0x001F, skipFixed, 6},  // OpColor
	{0x0020, 0x0020, skipFixed, 8},  // Line
	{0x0021, 0x0021, skipFixed, 4},  // LineFrom
	{0x0022, 0x0022, skipFixed, 6},  // ShortLine
	{0x0023, 0x0023, skipFixed, 2},  // ShortLineFrom
	{0x0028, 0x0028, skipPString, 4}, // LongText
	{0x0029, 0x002A, skipPString, 1}, // DHText, DVText
	{0x002B, 0x002B, skipPString, 2}, // DHDVText
	// fontName, lineJustify, glyphState: the length word counts only the
	// bytes after it, unlike a region size.
	{0x002C, 0x002E, skipData16, 0},
	{0x0030, 0x0037, skipFixed, 8},   // frameRect..
	{0x0038, 0x003F, skipFixed, 0},   // frameSameRect..
	{0x0040, 0x0047, skipFixed, 8},   // frameRRect..
	{0x0048, 0x004F, skipFixed, 0},   // frameSameRRect..
	{0x0050, 0x0057, skipFixed, 8},   // frameOval..
	{0x0058, 0x005F, skipFixed, 0},   // frameSameOval..
	{0x0060, 0x0067, skipFixed, 12},  // frameArc..
	{0x0068, 0x006F, skipFixed, 4},   // frameSameArc..
	{0x0070, 0x0077, skipRegion, 0},  // framePoly..
	{0x0078, 0x007F, skipFixed, 0},   // frameSamePoly..
	{0x0080, 0x0087, skipRegion, 0},  // frameRgn..
	{0x0088, 0x008F, skipFixed, 0},   // frameSameRgn..
	{0x00A0, 0x00A0, skipFixed, 2},   // ShortComment
	{0x00A1, 0x00A1, skipData16, 2},  // LongComment
	{0x00A2, 0x00AF, skipData16, 0},
	{0x00B0, 0x00CF, skipFixed, 0},
	{0x00D0, 0x00FE, skipData32, 0},
	{0x02FF, 0x02FF, skipFixed, 2},  // version marker
	{0x0A00, 0x0A00, skipFixed, 8},  // alternate header
	{0x0C00, 0x0C00, skipFixed, 24}, // HeaderOp
	{0x8000, 0x80FF, skipFixed, 0},
	{0x8100, 0xFFFF, skipData32, 0},
}

// Version-1 state-only opcodes. The fields match the word grammar except
// where version 1 packs them tighter.
var v1Skips = []skipRule{
	{0x00, 0x00, skipFixed, 0},
	{0x01, 0x01, skipRegion, 0},
	{0x02, 0x02, skipFixed, 8},
	{0x03, 0x03, skipFixed, 2},
	{0x04, 0x04, skipFixed, 1},
	{0x05, 0x05, skipFixed, 2},
	{0x06, 0x07, skipFixed, 4},
	{0x08, 0x08, skipFixed, 2},
	{0x09, 0x0A, skipFixed, 8},
	{0x0B, 0x0C, skipFixed, 4},
	{0x0D, 0x0D, skipFixed, 2},
	{0x0E, 0x0F, skipFixed, 4}, // 4-byte QuickDraw color constants
	{0x10, 0x10, skipFixed, 8},
	{0x11, 0x11, skipFixed, 1}, // picVersion
	{0x1E, 0x1E, skipFixed, 0},
	{0x20, 0x20, skipFixed, 8},
	{0x21, 0x21, skipFixed, 4},
	{0x22, 0x22, skipFixed, 6},
	{0x23, 0x23, skipFixed, 2},
	{0x28, 0x28, skipPString, 4},
	{0x29, 0x2A, skipPString, 1},
	{0x2B, 0x2B, skipPString, 2},
	{0x30, 0x37, skipFixed, 8},
	{0x38, 0x3F, skipFixed, 0},
	{0x40, 0x47, skipFixed, 8},
	{0x48, 0x4F, skipFixed, 0},
	{0x50, 0x57, skipFixed, 8},
	{0x58, 0x5F, skipFixed, 0},
	{0x60, 0x67, skipFixed, 12},
	{0x68, 0x6F, skipFixed, 4},
	{0x70, 0x77, skipRegion, 0},
	{0x78, 0x7F, skipFixed, 0},
	{0x80, 0x87, skipRegion, 0},
	{0x88, 0x8F, skipFixed, 0},
	{0xA0, 0xA0, skipFixed, 2},
	{0xA1, 0xA1, skipData16, 2},
}

// skipOp advances past a state-only opcode using the grammar's rule
// table. It reports false for opcodes the table does not cover, which
// ends the walk.
func skipOp(rules []skipRule, op uint16, data []byte, pos int) (int, bool) {
	for _, r := range rules {
		if op < r.lo || op > r.hi {
			continue
		}
		pos += r.pre
		switch r.kind {
		case skipFixed:
		case skipRegion:
			var ok bool
			pos, ok = skipRegionAt(data, pos)
			if !ok {
				return pos, false
			}
		case skipData16:
			n, ok := be16(data, pos)
			if !ok {
				return pos, false
			}
			pos += 2 + int(n)
		case skipData32:
			n, ok := be32(data, pos)
			if !ok {
				return pos, false
			}
			pos += 4 + int(n)
		case skipPString:
			if pos >= len(data) {
				return pos, false
			}
			pos += 1 + int(data[pos])
		case skipPixPat:
			var ok bool
			pos, ok = skipPixPatAt(data, pos)
			if !ok {
				return pos, false
			}
		}
		return pos, pos <= len(data)
	}
	return pos, false
}

// skipPixPatAt advances past an embedded pixel pattern: the pattern type
// and the old-style 8-byte pattern, then for full patterns a 50-byte
// pixel map, color table, and pixel rows, or for RGB patterns a single
// 48-bit color.
func skipPixPatAt(data []byte, pos int) (int, bool) {
	patType, ok := be16(data, pos)
	if !ok {
		return pos, false
	}
	pos += 2 + 8

	switch patType {
	case 1:
		rowBytesRaw, ok := be16(data, pos+4)
		if !ok {
			return pos, false
		}
		rowBytes := int(rowBytesRaw & 0x3FFF)
		bounds, ok := parseRect(data, pos+6)
		if !ok {
			return pos, false
		}
		if bounds.height() < 0 {
			return pos, false
		}
		pos += 4 + 10 + pixMapSize
		table, err := parseColorTable(data, pos)
		if err != nil {
			return pos, false
		}
		pos += table.size()
		pos += bounds.height() * rowBytes
	case 2:
		pos += 6
	}
	return pos, pos <= len(data)
}

// skipRegionAt advances past a QuickDraw region, whose 16-bit size field
// counts itself.
func skipRegionAt(data []byte, pos int) (int, bool) {
	n, ok := be16(data, pos)
	if !ok || int(n) < 2 {
		return pos, false
	}
	pos += int(n)
	return pos, pos <= len(data)
}
