package resource

import (
	"encoding/binary"
	"fmt"
)

// SoundEncoding classifies the sample data inside an snd resource.
type SoundEncoding uint8

const (
	// SoundStandard8 is unsigned 8-bit PCM following a standard header.
	SoundStandard8 SoundEncoding = iota
	// SoundExtended16 is signed 16-bit PCM following an extended header,
	// byte-swapped to little-endian order in the payload.
	SoundExtended16
	// SoundCompressedMACE3 is MACE 3:1 compressed audio; the payload needs
	// an external transcoder (wrap it with aifc.Build first).
	SoundCompressedMACE3
)

func (e SoundEncoding) String() string {
	switch e {
	case SoundStandard8:
		return "Encoding(Standard8)"
	case SoundExtended16:
		return "Encoding(Extended16)"
	case SoundCompressedMACE3:
		return "Encoding(MACE3)"
	}
	return "Encoding(Invalid)"
}

// Sound commands. The command list points at the sample header through
// the second parameter of a soundCmd or bufferCmd.
const (
	soundCmd  = 0x8050
	bufferCmd = 0x8051
)

// Sample header encoding bytes.
const (
	encodeStandard   = 0x00
	encodeExtended   = 0xFF
	encodeCompressed = 0xFE
)

const maceCompressionID = 3

// A Sound is the decoded content of an snd resource.
type Sound struct {
	SampleRate    int // Hz
	Frames        int
	Encoding      SoundEncoding
	SampleSize    int // bytes per sample for the PCM encodings
	Payload       []byte
	CompressionID int // set only for compressed encodings
}

// soundHeader is the parsed sample header an snd command points at.
type soundHeader struct {
	offset   int
	frames   int
	rate     int
	encoding byte
}

// ParseSound decodes an snd resource: walk the command list to the
// sample header, classify its encoding, and slice out the payload.
func ParseSound(data []byte) (*Sound, error) {
	hdr, err := locateHeader(data)
	if err != nil {
		return nil, err
	}

	snd := &Sound{SampleRate: hdr.rate, Frames: hdr.frames}

	switch hdr.encoding {
	case encodeStandard:
		// Samples immediately follow the 22-byte standard header.
		start := hdr.offset + 22
		if start+hdr.frames > len(data) {
			return nil, TruncatedError("sample data extends past end of resource")
		}
		snd.Encoding = SoundStandard8
		snd.SampleSize = 1
		snd.Payload = data[start : start+hdr.frames]

	case encodeExtended:
		bits, ok := be16(data, hdr.offset+48)
		if !ok {
			return nil, TruncatedError("extended header shorter than its sample size field")
		}
		if bits != 16 {
			return nil, UnsupportedError(fmt.Sprintf("extended sound with %d-bit samples", bits))
		}
		start := hdr.offset + 64
		if start+hdr.frames*2 > len(data) {
			return nil, TruncatedError("sample data extends past end of resource")
		}
		snd.Encoding = SoundExtended16
		snd.SampleSize = 2
		snd.Payload = swapToLittleEndian(data[start : start+hdr.frames*2])

	case encodeCompressed:
		compID, ok := be16(data, hdr.offset+56)
		if !ok {
			return nil, TruncatedError("compressed header shorter than its compression id field")
		}
		if int16(compID) != maceCompressionID {
			return nil, UnsupportedError(fmt.Sprintf("compression id %d", int16(compID)))
		}
		start := hdr.offset + 78
		if start >= len(data) {
			return nil, TruncatedError("compressed sample data missing")
		}
		snd.Encoding = SoundCompressedMACE3
		snd.CompressionID = maceCompressionID
		// The frame count stored in the header undercounts; take every
		// remaining byte, each of which expands to three samples.
		snd.Payload = data[start:]
		snd.Frames = len(snd.Payload) * 3

	default:
		return nil, UnsupportedError(fmt.Sprintf("sound encoding 0x%02x", hdr.encoding))
	}

	return snd, nil
}

// locateHeader walks the resource's command list and parses the sample
// header addressed by the first soundCmd or bufferCmd.
func locateHeader(data []byte) (soundHeader, error) {
	var hdr soundHeader

	format, ok := be16(data, 0)
	if !ok {
		return hdr, FormatError("sound shorter than its format field")
	}

	var pos int
	switch format {
	case 1:
		// Synthesizer-init entries precede the command list.
		numSynths, ok := be16(data, 2)
		if !ok {
			return hdr, FormatError("sound shorter than its synthesizer count")
		}
		pos = 4 + int(numSynths)*6
	case 2:
		pos = 4 // past the reference count
	default:
		return hdr, UnsupportedError(fmt.Sprintf("sound format %d", format))
	}

	numCmds, ok := be16(data, pos)
	if !ok {
		return hdr, TruncatedError("sound command count extends past end of resource")
	}
	pos += 2

	headerOffset := -1
	for i := 0; i < int(numCmds); i, pos = i+1, pos+8 {
		cmd, ok := be16(data, pos)
		if !ok {
			return hdr, TruncatedError("sound command extends past end of resource")
		}
		if cmd == soundCmd || cmd == bufferCmd {
			param2, ok := be32(data, pos+4)
			if !ok {
				return hdr, TruncatedError("sound command extends past end of resource")
			}
			headerOffset = int(param2)
			break
		}
	}
	if headerOffset < 0 {
		return hdr, UnsupportedError("no buffer or sound command in command list")
	}
	if headerOffset+22 > len(data) {
		return hdr, TruncatedError("sample header extends past end of resource")
	}

	frames := binary.BigEndian.Uint32(data[headerOffset+4:])
	rateFixed := binary.BigEndian.Uint32(data[headerOffset+8:])

	hdr.offset = headerOffset
	hdr.frames = int(frames)
	hdr.rate = int(rateFixed >> 16) // integer part of the 16.16 rate
	hdr.encoding = data[headerOffset+20]
	return hdr, nil
}

// swapToLittleEndian converts big-endian 16-bit samples to the
// little-endian order PCM sinks expect.
func swapToLittleEndian(src []byte) []byte {
	out := make([]byte, len(src))
	for i := 0; i+1 < len(src); i += 2 {
		out[i], out[i+1] = src[i+1], src[i]
	}
	return out
}
