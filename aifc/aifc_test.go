package aifc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// chunks splits a FORM body into id -> payload, checking the pad rule.
func chunks(t *testing.T, body []byte) map[string][]byte {
	t.Helper()
	out := make(map[string][]byte)
	pos := 0
	for pos < len(body) {
		if pos+8 > len(body) {
			t.Fatalf("dangling %d bytes after last chunk", len(body)-pos)
		}
		id := string(body[pos : pos+4])
		n := int(binary.BigEndian.Uint32(body[pos+4:]))
		pos += 8
		if pos+n > len(body) {
			t.Fatalf("chunk %q length %d overruns container", id, n)
		}
		out[id] = body[pos : pos+n]
		pos += n
		if n%2 == 1 {
			if body[pos] != 0 {
				t.Errorf("chunk %q pad byte = %#02x, want 0", id, body[pos])
			}
			pos++
		}
	}
	return out
}

func TestBuild(t *testing.T) {
	payload := []byte{0x11, 0x22, 0x33, 0x44, 0x55}
	out := Build(payload, 22050, 15)

	if string(out[:4]) != "FORM" {
		t.Fatalf("container starts with %q", out[:4])
	}
	formLen := int(binary.BigEndian.Uint32(out[4:]))
	if formLen != len(out)-8 {
		t.Errorf("FORM length = %d, want %d", formLen, len(out)-8)
	}
	if string(out[8:12]) != "AIFC" {
		t.Fatalf("form type = %q", out[8:12])
	}

	cs := chunks(t, out[12:])

	fver, ok := cs["FVER"]
	if !ok || len(fver) != 4 {
		t.Fatalf("FVER = % x", fver)
	}
	if binary.BigEndian.Uint32(fver) != fverTimestamp {
		t.Errorf("FVER timestamp = %#x", binary.BigEndian.Uint32(fver))
	}

	comm, ok := cs["COMM"]
	if !ok || len(comm) < 22 {
		t.Fatalf("COMM = % x", comm)
	}
	if binary.BigEndian.Uint16(comm) != 1 {
		t.Errorf("channels = %d, want 1", binary.BigEndian.Uint16(comm))
	}
	if got := binary.BigEndian.Uint32(comm[2:]); got != 15 {
		t.Errorf("frame count = %d, want 15", got)
	}
	if binary.BigEndian.Uint16(comm[6:]) != 8 {
		t.Errorf("sample size = %d, want 8", binary.BigEndian.Uint16(comm[6:]))
	}
	if string(comm[18:22]) != "MAC3" {
		t.Errorf("compression type = %q", comm[18:22])
	}
	name := comm[22:]
	if name[0] != byte(len("MACE 3-to-1")) || string(name[1:1+name[0]]) != "MACE 3-to-1" {
		t.Errorf("compression name = % x", name)
	}
	if len(name)%2 != 0 {
		t.Errorf("compression name not padded to even length")
	}

	ssnd, ok := cs["SSND"]
	if !ok {
		t.Fatal("no SSND chunk")
	}
	if !bytes.Equal(ssnd[:8], make([]byte, 8)) {
		t.Errorf("SSND offset/blockSize = % x, want zeros", ssnd[:8])
	}
	if !bytes.Equal(ssnd[8:], payload) {
		t.Errorf("SSND payload = % x", ssnd[8:])
	}
}

func TestExtended80(t *testing.T) {
	for _, rate := range []int{11025, 22050, 44100, 8000} {
		got := extended80(rate)
		exp := int(binary.BigEndian.Uint16(got))
		mantissa := binary.BigEndian.Uint64(got[2:])
		shift := 16383 + 63 - exp
		if shift < 0 || shift > 63 {
			t.Fatalf("rate %d: exponent %d out of range", rate, exp)
		}
		if back := mantissa >> shift; back != uint64(rate) {
			t.Errorf("rate %d round-trips to %d", rate, back)
		}
		if mantissa < 1<<62 {
			t.Errorf("rate %d: mantissa %#x not normalized", rate, mantissa)
		}
	}
}

func TestExtended80NonPositive(t *testing.T) {
	if !bytes.Equal(extended80(0), make([]byte, 10)) {
		t.Error("zero rate should encode as zero bytes")
	}
}
