package resource

// ParseStringList decodes a STR# resource: a 16-bit count followed by that
// many length-prefixed Mac-Roman strings.
func ParseStringList(data []byte) ([]string, error) {
	count, ok := be16(data, 0)
	if !ok {
		return nil, FormatError("string list shorter than its count field")
	}
	out := make([]string, 0, count)
	pos := 2
	for i := 0; i < int(count); i++ {
		if pos >= len(data) {
			return out, TruncatedError("string list count exceeds resource size")
		}
		n := int(data[pos])
		pos++
		if pos+n > len(data) {
			return out, TruncatedError("string extends past end of resource")
		}
		out = append(out, macRoman(data[pos:pos+n]))
		pos += n
	}
	return out, nil
}
