package resource

import (
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/text/encoding/charmap"
)

// A Record is a single resource: its 4-character type code, numeric id,
// optional name, and raw payload bytes.
type Record struct {
	Type string
	ID   int16
	Name string
	Data []byte
}

// A Fork is a parsed resource fork: an immutable lookup of (type, id) to
// record. Records hold sub-slices of the buffer passed to ParseFork.
type Fork struct {
	types   []string
	records map[string][]Record
}

// Types returns the 4-character type codes present in the fork, in the
// order they appear in the type list.
func (f *Fork) Types() []string {
	out := make([]string, len(f.types))
	copy(out, f.types)
	return out
}

// List returns all records of the given type, sorted by id.
func (f *Fork) List(typeCode string) []Record {
	return f.records[typeCode]
}

// Get looks up a single record by type code and id.
func (f *Fork) Get(typeCode string, id int16) (Record, bool) {
	for _, rec := range f.records[typeCode] {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Len returns the total number of records in the fork.
func (f *Fork) Len() int {
	n := 0
	for _, recs := range f.records {
		n += len(recs)
	}
	return n
}

const nameSentinel = 0xFFFF

// ParseFork parses a classic resource fork. The buffer may be a bare fork
// or an AppleDouble file wrapping one. All structural problems are
// reported as FormatError; no offset in the map is followed outside the
// buffer.
func ParseFork(data []byte) (*Fork, error) {
	data, err := unwrapAppleDouble(data)
	if err != nil {
		return nil, err
	}

	dataOffset, ok := be32(data, 0)
	if !ok {
		return nil, FormatError("missing fork header")
	}
	mapOffset, _ := be32(data, 4)

	typeListRel, ok := be16(data, int(mapOffset)+24)
	if !ok {
		return nil, FormatError("missing map header")
	}
	nameListRel, _ := be16(data, int(mapOffset)+26)
	typeList := int(mapOffset) + int(typeListRel)
	nameList := int(mapOffset) + int(nameListRel)

	countField, ok := be16(data, typeList)
	if !ok {
		return nil, FormatError("type list outside buffer")
	}
	numTypes := int(countField) + 1

	fork := &Fork{records: make(map[string][]Record, numTypes)}

	pos := typeList + 2
	for i := 0; i < numTypes; i, pos = i+1, pos+8 {
		if pos+8 > len(data) {
			return nil, FormatError("type list entry outside buffer")
		}
		typeCode := macRoman(data[pos : pos+4])
		numOfType := int(binary.BigEndian.Uint16(data[pos+4:])) + 1
		refListRel := int(binary.BigEndian.Uint16(data[pos+6:]))

		refPos := typeList + refListRel
		for j := 0; j < numOfType; j, refPos = j+1, refPos+12 {
			rec, err := parseReference(data, refPos, int(dataOffset), nameList)
			if err != nil {
				return nil, err
			}
			rec.Type = typeCode
			fork.records[typeCode] = append(fork.records[typeCode], rec)
		}

		fork.types = append(fork.types, typeCode)
		sort.Slice(fork.records[typeCode], func(a, b int) bool {
			return fork.records[typeCode][a].ID < fork.records[typeCode][b].ID
		})
	}

	return fork, nil
}

// parseReference decodes one 12-byte reference-list entry and resolves its
// data (and name, when present).
func parseReference(data []byte, refPos, dataOffset, nameList int) (Record, error) {
	if refPos+12 > len(data) || refPos < 0 {
		return Record{}, FormatError("reference list entry outside buffer")
	}
	id := int16(binary.BigEndian.Uint16(data[refPos:]))
	nameRel := binary.BigEndian.Uint16(data[refPos+2:])
	// The high byte of this field holds the resource attributes; only the
	// low 24 bits are the data offset.
	recOffset := int(binary.BigEndian.Uint32(data[refPos+4:]) & 0x00FFFFFF)

	start := dataOffset + recOffset
	length, ok := be32(data, start)
	if !ok {
		return Record{}, FormatError(fmt.Sprintf("resource %d data offset outside buffer", id))
	}
	end := start + 4 + int(length)
	if end > len(data) || end < start {
		return Record{}, FormatError(fmt.Sprintf("resource %d data extends past end of buffer", id))
	}

	rec := Record{ID: id, Data: data[start+4 : end]}
	if nameRel != nameSentinel {
		rec.Name = resolveName(data, nameList+int(nameRel))
	}
	return rec, nil
}

// resolveName reads a length-prefixed Mac-Roman string. A name that falls
// outside the buffer degrades to the empty string rather than failing the
// whole fork.
func resolveName(data []byte, pos int) string {
	if pos < 0 || pos >= len(data) {
		return ""
	}
	n := int(data[pos])
	if pos+1+n > len(data) {
		return ""
	}
	return macRoman(data[pos+1 : pos+1+n])
}

const (
	appleDoubleResourceFork = 2
	appleDoubleEntryList    = 26
)

// unwrapAppleDouble returns the resource-fork bytes of an AppleDouble
// container, or the input unchanged when it is a bare fork.
func unwrapAppleDouble(data []byte) ([]byte, error) {
	if len(data) < 3 || data[0] != 0x00 || data[1] != 0x05 || data[2] != 0x16 {
		return data, nil
	}
	numEntries, ok := be16(data, 24)
	if !ok {
		return nil, FormatError("truncated AppleDouble header")
	}
	pos := appleDoubleEntryList
	for i := 0; i < int(numEntries); i, pos = i+1, pos+12 {
		if pos+12 > len(data) {
			return nil, FormatError("AppleDouble entry list outside buffer")
		}
		entryID := binary.BigEndian.Uint32(data[pos:])
		offset := int(binary.BigEndian.Uint32(data[pos+4:]))
		length := int(binary.BigEndian.Uint32(data[pos+8:]))
		if entryID != appleDoubleResourceFork {
			continue
		}
		if offset < 0 || length < 0 || offset+length > len(data) {
			return nil, FormatError("AppleDouble resource fork entry outside buffer")
		}
		return data[offset : offset+length], nil
	}
	return nil, FormatError("AppleDouble container has no resource fork entry")
}

// macRoman decodes Mac OS Roman bytes. Every byte value is defined in the
// charmap, so decoding cannot fail on arbitrary input.
func macRoman(b []byte) string {
	out, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func be16(b []byte, off int) (uint16, bool) {
	if off < 0 || off+2 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint16(b[off:]), true
}

func be32(b []byte, off int) (uint32, bool) {
	if off < 0 || off+4 > len(b) {
		return 0, false
	}
	return binary.BigEndian.Uint32(b[off:]), true
}
