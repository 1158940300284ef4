package simzip

import "errors"

// Sentinel errors for archive writing.
var (
	// ErrUnsupportedCompression is returned when an entry asks for a method
	// that has no registered compressor.
	ErrUnsupportedCompression = errors.New("simzip: unsupported compression")

	// ErrExtraFieldLength is returned when the declared length of an extra
	// field disagrees with the bytes encoded for it.
	ErrExtraFieldLength = errors.New("simzip: extra field length mismatch")

	// ErrRecordLength is returned when a serialized record reports a size that
	// does not match how far the output advanced.
	ErrRecordLength = errors.New("simzip: record length mismatch")

	// ErrSizeOverflow is returned when a size or offset does not fit in the
	// 32-bit fields of a non-zip64 archive.
	ErrSizeOverflow = errors.New("simzip: size overflow")

	// ErrFieldTooLong is returned when a name or comment exceeds 65535 bytes.
	ErrFieldTooLong = errors.New("simzip: header field too long")

	// ErrCompressBound is returned when a compressor produces more output
	// than its CompressBound promised.
	ErrCompressBound = errors.New("simzip: compressed output exceeds bound")
)

// Error records a failed store step together with the file or entry it
// concerned.
type Error struct {
	Op   string // "create", "stat", "read", "write", "seek", "compress", ...
	Path string // archive path, source path or entry name; may be empty
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "simzip: " + e.Op + ": " + e.Err.Error()
	}
	return "simzip: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
