// Package storage provides byte sources backed by object stores: a local
// directory tree and S3-compatible buckets.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Skryldev/decodekit/errors"
	"github.com/Skryldev/decodekit/source"
)

// Key identifies a stored object.
type Key struct {
	Bucket string // optional; a sub-directory for Local
	Path   string
}

func (k Key) String() string {
	if k.Bucket == "" {
		return k.Path
	}
	return k.Bucket + "/" + k.Path
}

// ErrOutsideRoot is returned when a key resolves outside the storage root.
var ErrOutsideRoot = errors.New("key resolves outside the storage root")

// Local serves objects from a directory tree.
type Local struct {
	rootDir string
}

// NewLocal creates a Local store rooted at dir, which must exist.
func NewLocal(dir string) (*Local, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategorySource, "local.new", err)
	}
	if !fi.IsDir() {
		return nil, apperrors.New(apperrors.CategorySource, "local.new", fmt.Errorf("%s is not a directory", dir))
	}
	return &Local{rootDir: dir}, nil
}

func (l *Local) absPath(key Key) (string, error) {
	// Bucket maps to a subdirectory; Path is the filename.
	p := filepath.Join(l.rootDir, filepath.Clean("/"+key.Bucket), filepath.Clean("/"+key.Path))
	rel, err := filepath.Rel(l.rootDir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return p, nil
}

// Source returns a re-openable source for key.  Errors resolving the key
// surface when the source is opened.
func (l *Local) Source(key Key) source.Source {
	return objectSource{name: "local:" + key.String(), open: func() (io.ReadCloser, error) {
		p, err := l.absPath(key)
		if err != nil {
			return nil, errors.Join(source.ErrOpen, err)
		}
		return source.FromFile(p).Open()
	}}
}

// objectSource adapts an open function to source.Source.
type objectSource struct {
	name string
	open func() (io.ReadCloser, error)
}

func (s objectSource) Name() string                 { return s.name }
func (s objectSource) Open() (io.ReadCloser, error) { return s.open() }
