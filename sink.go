package simzip

import (
	"fmt"
	"io"
)

// sink tracks the write position of the archive output. Records are appended
// with write; patch rewrites bytes already written and returns to the end.
type sink struct {
	ws   io.WriteSeeker
	name string
	pos  int64
}

func newSink(ws io.WriteSeeker, name string) (*sink, error) {
	pos, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, pathError("seek", name, err)
	}
	return &sink{ws: ws, name: name, pos: pos}, nil
}

func (s *sink) write(p []byte) error {
	n, err := s.ws.Write(p)
	s.pos += int64(n)
	if err != nil {
		return pathError("write", s.name, err)
	}
	if n != len(p) {
		return pathError("write", s.name, io.ErrShortWrite)
	}
	return nil
}

// patch overwrites len(p) bytes at off, which must lie inside what has
// already been written.
func (s *sink) patch(off int64, p []byte) error {
	if off < 0 || off+int64(len(p)) > s.pos {
		return pathError("patch", s.name, fmt.Errorf("range [%d, %d) outside written data [0, %d)", off, off+int64(len(p)), s.pos))
	}
	if _, err := s.ws.Seek(off, io.SeekStart); err != nil {
		return pathError("seek", s.name, err)
	}
	n, err := s.ws.Write(p)
	if err == nil && n != len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return pathError("write", s.name, err)
	}
	if _, err := s.ws.Seek(s.pos, io.SeekStart); err != nil {
		return pathError("seek", s.name, err)
	}
	return nil
}

// sinkName returns the file name behind ws, if it has one.
func sinkName(ws io.WriteSeeker) string {
	if f, ok := ws.(interface{ Name() string }); ok {
		return f.Name()
	}
	return ""
}
