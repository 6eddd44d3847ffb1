// Package aifc builds minimal AIFF-C containers around MACE 3:1
// compressed audio, so an external transcoder can decode it to PCM.
package aifc

import "encoding/binary"

const (
	formType        = "AIFC"
	fverTimestamp   = 0xA2805140 // AIFC version 1 creation date
	compressionType = "MAC3"
	compressionName = "MACE 3-to-1"

	numChannels = 1
	sampleSize  = 8 // nominal bits per sample before expansion
)

// Build wraps a MACE 3:1 payload in a FORM/AIFC container: an FVER
// chunk, a COMM chunk describing one channel of frameCount frames at
// sampleRate, and an SSND chunk holding the payload with a zero
// offset/blockSize pair. Chunks with odd payloads are padded with one
// zero byte that is not counted in the chunk length.
func Build(payload []byte, sampleRate, frameCount int) []byte {
	var fver []byte
	fver = binary.BigEndian.AppendUint32(fver, fverTimestamp)

	var comm []byte
	comm = binary.BigEndian.AppendUint16(comm, numChannels)
	comm = binary.BigEndian.AppendUint32(comm, uint32(frameCount))
	comm = binary.BigEndian.AppendUint16(comm, sampleSize)
	comm = append(comm, extended80(sampleRate)...)
	comm = append(comm, compressionType...)
	comm = append(comm, pstring(compressionName)...)

	ssnd := make([]byte, 8, 8+len(payload)) // zero offset and blockSize
	ssnd = append(ssnd, payload...)

	form := []byte(formType)
	form = appendChunk(form, "FVER", fver)
	form = appendChunk(form, "COMM", comm)
	form = appendChunk(form, "SSND", ssnd)

	return appendChunk(nil, "FORM", form)
}

// appendChunk writes a chunk id, its 32-bit payload length, the payload,
// and a pad byte when the payload length is odd.
func appendChunk(dst []byte, id string, payload []byte) []byte {
	dst = append(dst, id...)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	dst = append(dst, payload...)
	if len(payload)%2 == 1 {
		dst = append(dst, 0)
	}
	return dst
}

// pstring encodes a length-prefixed string padded to an even total size.
func pstring(s string) []byte {
	out := append([]byte{byte(len(s))}, s...)
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

// extended80 encodes an integer sample rate as a 10-byte 80-bit extended
// precision float: the largest left-shift s keeping rate<<s below 2^63
// gives the 64-bit mantissa, and 16383+63-s the biased exponent, so a
// decoder computing mantissa>>(16383+63-exponent) recovers the rate
// exactly.
func extended80(rate int) []byte {
	out := make([]byte, 10)
	if rate <= 0 {
		return out
	}

	mantissa := uint64(rate)
	shift := 0
	for mantissa < 1<<62 {
		mantissa <<= 1
		shift++
	}

	binary.BigEndian.PutUint16(out, uint16(16383+63-shift))
	binary.BigEndian.PutUint64(out[2:], mantissa)
	return out
}
