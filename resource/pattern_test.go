package resource

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// testColorTable is a 3-entry color table (white, red, black) whose seed
// and flags bytes cannot be mistaken for a size field by the locator.
func testColorTable() []byte {
	table := []byte{
		0xAA, 0xAA, 0xAA, 0xAA, // seed
		0xAA, 0xAA, // flags
		0x00, 0x02, // size-1
	}
	entries := []struct{ idx, r, g, b uint16 }{
		{0, 0xFFFF, 0xFFFF, 0xFFFF},
		{1, 0xFFFF, 0x0000, 0x0000},
		{2, 0x0000, 0x0000, 0x0000},
	}
	for _, e := range entries {
		table = binary.BigEndian.AppendUint16(table, e.idx)
		table = binary.BigEndian.AppendUint16(table, e.r)
		table = binary.BigEndian.AppendUint16(table, e.g)
		table = binary.BigEndian.AppendUint16(table, e.b)
	}
	return table
}

// buildIndexedPattern assembles a type-0 ppat: pixel map inlined at
// offset 2, pixel rows at 74, color table found by scanning.
func buildIndexedPattern(rowBytes, pixelSize int, rows []byte) []byte {
	buf := make([]byte, 74)
	binary.BigEndian.PutUint16(buf[6:], uint16(rowBytes))
	binary.BigEndian.PutUint16(buf[12:], 8) // bounds bottom
	binary.BigEndian.PutUint16(buf[14:], 8) // bounds right
	binary.BigEndian.PutUint16(buf[34:], uint16(pixelSize))
	buf = append(buf, rows...)
	return append(buf, testColorTable()...)
}

// buildFullPattern assembles the same content as a type-1 ppat with
// explicit offsets and the color table right after the pixel data.
func buildFullPattern(rowBytes, pixelSize int, rows []byte) []byte {
	buf := make([]byte, 60)
	binary.BigEndian.PutUint16(buf, 1)
	binary.BigEndian.PutUint32(buf[2:], 10) // pixel map offset
	binary.BigEndian.PutUint32(buf[6:], 60) // pixel data offset
	binary.BigEndian.PutUint16(buf[14:], uint16(rowBytes))
	binary.BigEndian.PutUint16(buf[20:], 8) // bounds bottom
	binary.BigEndian.PutUint16(buf[22:], 8) // bounds right
	binary.BigEndian.PutUint16(buf[42:], uint16(pixelSize))
	buf = append(buf, rows...)
	return append(buf, testColorTable()...)
}

// stripedRows alternates rows of the two byte values, 8 rows deep.
func stripedRows(rowBytes int, even, odd byte) []byte {
	out := make([]byte, 8*rowBytes)
	for y := 0; y < 8; y++ {
		v := even
		if y%2 == 1 {
			v = odd
		}
		for x := 0; x < rowBytes; x++ {
			out[y*rowBytes+x] = v
		}
	}
	return out
}

func TestDecodePattern8Bit(t *testing.T) {
	img, err := DecodePattern(buildIndexedPattern(8, 8, stripedRows(8, 0x01, 0x02)))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("bounds = %v, want 8x8", b)
	}

	// Index 1 is red; index 2 is black, which moves to the reserved slot.
	for x := 0; x < 8; x++ {
		if got := img.ColorIndexAt(x, 0); got != 1 {
			t.Errorf("pixel (%d,0) = %d, want 1", x, got)
		}
		if got := img.ColorIndexAt(x, 1); got != BlackIndex {
			t.Errorf("pixel (%d,1) = %d, want %d", x, got, BlackIndex)
		}
	}

	r, g, b, _ := img.Palette[1].RGBA()
	if r>>8 != 0xFF || g != 0 || b != 0 {
		t.Errorf("palette[1] = %v, want red", img.Palette[1])
	}
	r, g, b, _ = img.Palette[BlackIndex].RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("palette[%d] = %v, want black", BlackIndex, img.Palette[BlackIndex])
	}
}

func TestDecodePattern4Bit(t *testing.T) {
	// Every byte holds the nibbles 1,2: columns alternate red and black.
	rows := bytes.Repeat([]byte{0x12}, 8*4)
	img, err := DecodePattern(buildIndexedPattern(4, 4, rows))
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 8; x++ {
		want := uint8(1)
		if x%2 == 1 {
			want = BlackIndex
		}
		if got := img.ColorIndexAt(x, 3); got != want {
			t.Errorf("pixel (%d,3) = %d, want %d", x, got, want)
		}
	}
}

func TestDecodePatternAlternatingRows(t *testing.T) {
	// Rows alternate 0xFF and 0x00 against a 2-entry table: 0xFF has no
	// table entry and lands on the reserved black slot, 0x00 keeps its
	// position. All-zero rows would fool the scanning locator, so the
	// table offset is supplied directly.
	buf := make([]byte, 74)
	binary.BigEndian.PutUint16(buf[6:], 8)
	binary.BigEndian.PutUint16(buf[12:], 8)
	binary.BigEndian.PutUint16(buf[14:], 8)
	binary.BigEndian.PutUint16(buf[34:], 8)
	buf = append(buf, stripedRows(8, 0xFF, 0x00)...)

	tableAt := len(buf)
	buf = append(buf, make([]byte, 6)...)        // seed, flags
	buf = binary.BigEndian.AppendUint16(buf, 1)  // size-1
	for i, c := range []struct{ r, g, b uint16 }{
		{0xFFFF, 0xFFFF, 0xFFFF},
		{0xFFFF, 0x0000, 0x0000},
	} {
		buf = binary.BigEndian.AppendUint16(buf, uint16(i))
		buf = binary.BigEndian.AppendUint16(buf, c.r)
		buf = binary.BigEndian.AppendUint16(buf, c.g)
		buf = binary.BigEndian.AppendUint16(buf, c.b)
	}

	img, err := DecodePatternWith(buf, func([]byte, int) (int, bool) {
		return tableAt, true
	})
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < 8; y++ {
		want := uint8(BlackIndex)
		if y%2 == 1 {
			want = 0
		}
		if got := img.ColorIndexAt(3, y); got != want {
			t.Errorf("pixel (3,%d) = %d, want %d", y, got, want)
		}
	}
}

func TestDecodePatternFullLayout(t *testing.T) {
	rows := stripedRows(8, 0x01, 0x02)
	indexed, err := DecodePattern(buildIndexedPattern(8, 8, rows))
	if err != nil {
		t.Fatal(err)
	}
	full, err := DecodePattern(buildFullPattern(8, 8, rows))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(indexed.Pix, full.Pix) {
		t.Error("type 0 and type 1 layouts decode to different pixels")
	}
}

func TestDecodePatternErrors(t *testing.T) {
	good := buildIndexedPattern(8, 8, stripedRows(8, 0x01, 0x02))

	unknownType := append([]byte(nil), good...)
	binary.BigEndian.PutUint16(unknownType, 5)

	badDepth := buildIndexedPattern(8, 2, stripedRows(8, 0x01, 0x02))

	// Bounds claim 200 columns but the rows hold 8 bytes each.
	wideBounds := append([]byte(nil), good...)
	binary.BigEndian.PutUint16(wideBounds[14:], 200)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, FormatError("")},
		{"unknown pattern type", unknownType, UnsupportedError("")},
		{"unsupported depth", badDepth, UnsupportedError("")},
		{"bounds wider than rows", wideBounds, FormatError("")},
		{"pixel data cut off", good[:100], TruncatedError("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePattern(tt.data)
			if err == nil {
				t.Fatal("expected an error")
			}
			switch tt.want.(type) {
			case FormatError:
				var e FormatError
				if !errors.As(err, &e) {
					t.Errorf("got %v, want a FormatError", err)
				}
			case UnsupportedError:
				var e UnsupportedError
				if !errors.As(err, &e) {
					t.Errorf("got %v, want an UnsupportedError", err)
				}
			case TruncatedError:
				var e TruncatedError
				if !errors.As(err, &e) {
					t.Errorf("got %v, want a TruncatedError", err)
				}
			}
		})
	}
}
