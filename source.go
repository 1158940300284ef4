package simzip

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

// payload is an entry's content and metadata captured for one store.
type payload struct {
	data     []byte
	modified time.Time
	unix     *UnixMetadata
	attrs    Attribute
}

// load reads the entry's payload. Disk sources are stat'ed once and read
// whole; their permission bits add NoWrite and Exec to the entry attributes.
func (a *Archive) load(e *Entry) (payload, error) {
	switch src := e.Source().(type) {
	case Memory:
		now := a.clock()
		return payload{
			data:     src,
			modified: now,
			unix:     &UnixMetadata{Modified: now.Unix(), Changed: now.Unix()},
			attrs:    e.Attributes,
		}, nil
	case Disk:
		path := string(src)
		fi, err := os.Stat(path)
		if err != nil {
			return payload{}, pathError("stat", path, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return payload{}, pathError("read", path, err)
		}
		unix := &UnixMetadata{Modified: fi.ModTime().Unix()}
		fillUnixMetadata(fi, unix)
		return payload{
			data:     data,
			modified: fi.ModTime(),
			unix:     unix,
			attrs:    e.Attributes | modeAttributes(fi.Mode()),
		}, nil
	default:
		return payload{}, &Error{Op: "load", Path: e.FullName(), Err: errors.New("unknown payload location")}
	}
}

func modeAttributes(mode fs.FileMode) Attribute {
	var attrs Attribute
	if mode.Perm()&0o222 == 0 {
		attrs |= NoWrite
	}
	if mode.Perm()&0o111 != 0 {
		attrs |= Exec
	}
	return attrs
}

// pathError tags err with op and path, dropping an *fs.PathError that would
// repeat the path.
func pathError(op, path string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return &Error{Op: op, Path: path, Err: err}
}
