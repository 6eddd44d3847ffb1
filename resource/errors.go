package resource

// A FormatError reports that a buffer is not structurally valid: an offset
// resolves outside the buffer, a required field extends past the end, or a
// header value is implausible.
type FormatError string

func (e FormatError) Error() string { return "resource: invalid format: " + string(e) }

// An UnsupportedError reports a recognized but unhandled sub-format, such
// as a pattern type or pixel depth this package does not decode. The
// containing fork is fine; only the one resource is affected.
type UnsupportedError string

func (e UnsupportedError) Error() string { return "resource: unsupported variant: " + string(e) }

// A TruncatedError reports that a declared length or count exceeds the
// bytes remaining in the resource.
type TruncatedError string

func (e TruncatedError) Error() string { return "resource: truncated data: " + string(e) }
