package resource

import (
	"bytes"
	"encoding/binary"
	"image/color"
)

// pixMap is the fixed 36-byte QuickDraw PixMap record that follows the
// rowBytes/bounds fields of a pixel image.
type pixMap struct {
	Version    uint16
	PackType   uint16
	PackSize   uint32
	HRes       uint32
	VRes       uint32
	PixelType  uint16
	PixelSize  uint16
	CmpCount   uint16
	CmpSize    uint16
	PlaneBytes uint32
	PmTable    uint32
	PmReserved uint32
}

const pixMapSize = 36

func parsePixMap(data []byte, off int) (pixMap, error) {
	var pm pixMap
	if off < 0 || off+pixMapSize > len(data) {
		return pm, TruncatedError("pixel map record extends past end of resource")
	}
	if err := binary.Read(bytes.NewReader(data[off:off+pixMapSize]), binary.BigEndian, &pm); err != nil {
		return pm, FormatError("unreadable pixel map record")
	}
	return pm, nil
}

// rect is a QuickDraw rectangle of four signed 16-bit values.
type rect struct {
	Top, Left, Bottom, Right int16
}

func (r rect) width() int  { return int(r.Right) - int(r.Left) }
func (r rect) height() int { return int(r.Bottom) - int(r.Top) }

func parseRect(data []byte, off int) (rect, bool) {
	if off < 0 || off+8 > len(data) {
		return rect{}, false
	}
	return rect{
		Top:    int16(binary.BigEndian.Uint16(data[off:])),
		Left:   int16(binary.BigEndian.Uint16(data[off+2:])),
		Bottom: int16(binary.BigEndian.Uint16(data[off+4:])),
		Right:  int16(binary.BigEndian.Uint16(data[off+6:])),
	}, true
}

// ctDeviceFlag marks a device color table: entries are assigned by their
// position in the table, and the stored index fields are meaningless.
const ctDeviceFlag = 0x8000

type colorTableEntry struct {
	Index   uint16
	R, G, B uint16
}

func (e colorTableEntry) rgb() color.RGBA {
	// Channels are stored as 16-bit values; the output is 8 bits per channel.
	return color.RGBA{uint8(e.R >> 8), uint8(e.G >> 8), uint8(e.B >> 8), 0xFF}
}

type colorTable struct {
	flags   uint16
	entries []colorTableEntry
}

// size is the number of bytes the table occupies in the resource.
func (ct colorTable) size() int { return 8 + len(ct.entries)*8 }

// tableOrder returns the colors in the order they are stored, ignoring
// the per-entry index fields.
func (ct colorTable) tableOrder() []color.RGBA {
	out := make([]color.RGBA, len(ct.entries))
	for i, e := range ct.entries {
		out[i] = e.rgb()
	}
	return out
}

// byIndex distributes the entries over a 256-color table. Device tables
// assign by sequential position; otherwise the stored index field decides.
func (ct colorTable) byIndex() []color.RGBA {
	out := make([]color.RGBA, 256)
	for i := range out {
		out[i] = color.RGBA{0, 0, 0, 0xFF}
	}
	for i, e := range ct.entries {
		idx := int(e.Index)
		if ct.flags&ctDeviceFlag != 0 {
			idx = i
		}
		if idx < 256 {
			out[idx] = e.rgb()
		}
	}
	return out
}

// parseColorTable reads a color table at off: an 8-byte header (seed,
// flags, size-1) followed by 8-byte entries of (index, R, G, B).
func parseColorTable(data []byte, off int) (colorTable, error) {
	var ct colorTable
	if off < 0 || off+8 > len(data) {
		return ct, TruncatedError("color table header extends past end of resource")
	}
	ct.flags = binary.BigEndian.Uint16(data[off+4:])
	size := int(int16(binary.BigEndian.Uint16(data[off+6:]))) + 1
	if size < 1 || size > 256 {
		return ct, FormatError("implausible color table size")
	}

	pos := off + 8
	for i := 0; i < size; i++ {
		if pos+8 > len(data) {
			return ct, TruncatedError("color table entry extends past end of resource")
		}
		ct.entries = append(ct.entries, colorTableEntry{
			Index: binary.BigEndian.Uint16(data[pos:]),
			R:     binary.BigEndian.Uint16(data[pos+2:]),
			G:     binary.BigEndian.Uint16(data[pos+4:]),
			B:     binary.BigEndian.Uint16(data[pos+6:]),
		})
		pos += 8
	}
	return ct, nil
}
