package simzip

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// An Archive is an ordered list of entries that Store writes out as a ZIP
// file. Entries appear in the data section and in the central directory in
// the order they were added.
type Archive struct {
	// Name is the path Store creates.
	Name string
	// Comment is written to the end of central directory record.
	Comment string

	directory   map[dirKey]struct{}
	entries     []*Entry
	compressors map[Compression]Compressor
	logger      *slog.Logger
	clock       func() time.Time
}

// Option configures an Archive.
type Option func(*Archive)

// WithComment sets the archive comment.
func WithComment(comment string) Option {
	return func(a *Archive) {
		a.Comment = comment
	}
}

// WithDuplicateRejection makes Add refuse entries whose name and path are
// already present.
func WithDuplicateRejection() Option {
	return func(a *Archive) {
		a.RejectDuplicates()
	}
}

// WithLogger sets the logger for store progress. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewArchive returns an empty archive that Store will write to name.
func NewArchive(name string, opts ...Option) *Archive {
	a := &Archive{
		Name:   name,
		logger: slog.New(slog.DiscardHandler),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RejectDuplicates makes subsequent calls to Add refuse an entry whose name
// and path match an entry already in the archive.
func (a *Archive) RejectDuplicates() {
	if a.directory != nil {
		return
	}
	a.directory = make(map[dirKey]struct{}, len(a.entries))
	for _, e := range a.entries {
		a.directory[e.key()] = struct{}{}
	}
}

// Add appends e to the archive and reports whether it was added. It returns
// false only when duplicate rejection is on and an entry with the same name
// and path is already present.
func (a *Archive) Add(e *Entry) bool {
	if e == nil {
		return false
	}
	if a.directory != nil {
		k := e.key()
		if _, dup := a.directory[k]; dup {
			return false
		}
		a.directory[k] = struct{}{}
	}
	a.entries = append(a.entries, e)
	return true
}

// Entries returns the entries in archive order.
func (a *Archive) Entries() []*Entry {
	return append([]*Entry(nil), a.entries...)
}

// RegisterCompressor sets the compressor used for method in this archive,
// taking precedence over the package-level registry.
func (a *Archive) RegisterCompressor(method Compression, comp Compressor) {
	if a.compressors == nil {
		a.compressors = make(map[Compression]Compressor)
	}
	a.compressors[method] = comp
}

func (a *Archive) compressor(method Compression) Compressor {
	if comp, ok := a.compressors[method]; ok && comp != nil {
		return comp
	}
	return compressor(method)
}

// Store creates the file named by a.Name and writes the archive to it.
//
// On failure the partially written file is left in place; removing it is up
// to the caller.
func (a *Archive) Store() (err error) {
	f, err := os.Create(a.Name)
	if err != nil {
		return pathError("create", a.Name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = pathError("close", a.Name, cerr)
		}
	}()
	return a.StoreTo(f)
}

// StoreTo writes the archive to ws starting at its current position.
//
// Every local record is written first, each header patched with its CRC-32
// and compressed size once the payload is out. The central directory follows,
// built from the finished headers, and then the end record. The derived
// fields of every entry are filled in as its local record completes.
func (a *Archive) StoreTo(ws io.WriteSeeker) error {
	comment := []byte(a.Comment)
	if len(comment) > uint16max {
		return fmt.Errorf("%w: archive comment of %d bytes", ErrFieldTooLong, len(comment))
	}
	s, err := newSink(ws, sinkName(ws))
	if err != nil {
		return err
	}

	headers := make([]header, 0, len(a.entries))
	for _, e := range a.entries {
		start := s.pos
		h, n, err := a.writeLocal(s, e)
		if err != nil {
			return err
		}
		if s.pos-start != int64(n) {
			return fmt.Errorf("%w: local record of %q reported %d bytes, output advanced %d", ErrRecordLength, h.name, n, s.pos-start)
		}
		e.commit(h)
		headers = append(headers, h)
		a.logger.Debug("wrote entry",
			slog.String("name", string(h.name)),
			slog.String("method", h.method.String()),
			slog.Uint64("offset", uint64(h.offset)),
			slog.Uint64("size", uint64(h.uncompressedSize)),
			slog.Uint64("compressed", uint64(h.compressedSize)),
			slog.String("crc32", fmt.Sprintf("%08x", h.crc32)))
	}

	dirOffset := s.pos
	var dirSize int64
	for _, h := range headers {
		n, err := h.writeCentral(s)
		if err != nil {
			return err
		}
		dirSize += int64(n)
	}
	if s.pos-dirOffset != dirSize {
		return fmt.Errorf("%w: central directory reported %d bytes, output advanced %d", ErrRecordLength, dirSize, s.pos-dirOffset)
	}
	a.logger.Debug("wrote central directory",
		slog.Int("entries", len(headers)),
		slog.Int64("offset", dirOffset),
		slog.Int64("size", dirSize))

	if _, err := writeEnd(s, len(headers), dirSize, dirOffset, comment); err != nil {
		return err
	}
	a.logger.Debug("stored archive", slog.String("name", s.name), slog.Int64("size", s.pos))
	return nil
}

// commit copies the values computed while writing the local record back onto
// the entry.
func (e *Entry) commit(h header) {
	e.Attributes = h.attrs
	e.crc32 = h.crc32
	e.compressedSize = h.compressedSize
	e.uncompressedSize = h.uncompressedSize
	e.offset = h.offset
	e.modified = h.modified
	e.unix = h.unix
	e.timestampMask = h.timestampMask
}
