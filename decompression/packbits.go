// Package decompression implements the run-length codec used by the
// QuickDraw raster formats.
package decompression

import (
	"encoding/binary"
	"fmt"
)

// PackBits stores each raster row independently: a length prefix giving
// the number of packed bytes in the row, then a run of control bytes. A
// control byte n in 0..127 is followed by n+1 literal bytes; n in 129..255
// is followed by one byte repeated 257-n times. The value 128 is a no-op:
// the control byte is consumed and nothing is emitted.
//
// The row length prefix is one byte when the unpacked row stride is at
// most 250 bytes, otherwise a big-endian 16-bit count.

// UnpackBits decompresses rowCount rows of rowStride bytes each and
// returns exactly rowStride*rowCount bytes. A row that unpacks short is
// zero-padded to the stride; unpacking never consumes bytes beyond a
// row's declared packed length.
func UnpackBits(rowStride, rowCount int, src []byte) ([]byte, error) {
	out, _, err := UnpackRows(rowStride, rowCount, src)
	return out, err
}

// UnpackRows is UnpackBits reporting, in addition, how many bytes of src
// the framed rows occupied. Callers decoding an embedded stream use the
// count to resume after the pixel data.
func UnpackRows(rowStride, rowCount int, src []byte) ([]byte, int, error) {
	if rowStride <= 0 || rowCount < 0 {
		return nil, 0, fmt.Errorf("packbits: bad dimensions %dx%d", rowStride, rowCount)
	}

	out := make([]byte, 0, rowStride*rowCount)
	pos := 0
	for row := 0; row < rowCount; row++ {
		var packedLen int
		if rowStride > 250 {
			if pos+2 > len(src) {
				return nil, 0, fmt.Errorf("packbits: row %d length prefix truncated", row)
			}
			packedLen = int(binary.BigEndian.Uint16(src[pos:]))
			pos += 2
		} else {
			if pos >= len(src) {
				return nil, 0, fmt.Errorf("packbits: row %d length prefix truncated", row)
			}
			packedLen = int(src[pos])
			pos++
		}
		if pos+packedLen > len(src) {
			return nil, 0, fmt.Errorf("packbits: row %d declares %d bytes, %d remain", row, packedLen, len(src)-pos)
		}

		unpacked := make([]byte, rowStride)
		UnpackRow(unpacked, src[pos:pos+packedLen])
		out = append(out, unpacked...)
		pos += packedLen
	}

	return out, pos, nil
}

// UnpackRow decompresses a single pre-framed row into dst, stopping once
// dst is full or src is exhausted, and returns the number of bytes
// written. Unwritten bytes of dst are left as-is.
func UnpackRow(dst, src []byte) int {
	n := 0
	pos := 0
	for n < len(dst) && pos < len(src) {
		ctl := src[pos]
		pos++
		switch {
		case ctl == 128:
			// no-op
		case ctl > 128:
			count := 257 - int(ctl)
			if pos >= len(src) {
				return n
			}
			v := src[pos]
			pos++
			for i := 0; i < count && n < len(dst); i++ {
				dst[n] = v
				n++
			}
		default:
			count := int(ctl) + 1
			if pos+count > len(src) {
				count = len(src) - pos
			}
			for i := 0; i < count && n < len(dst); i++ {
				dst[n] = src[pos+i]
				n++
			}
			pos += count
		}
	}
	return n
}
