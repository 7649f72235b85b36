// Package tempdir provides a reference-counted temporary directory.
//
// The shuffle builder and the shuffler it produces share one scratch
// location; the directory is removed when the last owner releases it.
package tempdir

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Dir is a temporary directory shared between owners. Each owner holds
// one reference; Release drops it and the directory is removed when the
// count reaches zero.
type Dir struct {
	path string
	refs atomic.Int32
}

// New creates a fresh temporary directory with a single reference.
func New(pattern string) (*Dir, error) {
	path, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("tempdir: create: %w", err)
	}
	d := &Dir{path: path}
	d.refs.Store(1)
	return d, nil
}

// Path returns the directory path.
func (d *Dir) Path() string {
	return d.path
}

// Retain adds a reference and returns d for chaining.
func (d *Dir) Retain() *Dir {
	if d.refs.Add(1) <= 1 {
		panic("tempdir: retain after release")
	}
	return d
}

// Release drops one reference. The directory and its contents are removed
// when the last reference is released.
func (d *Dir) Release() error {
	n := d.refs.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		panic("tempdir: release of released dir")
	}
	if err := os.RemoveAll(d.path); err != nil {
		return fmt.Errorf("tempdir: remove %s: %w", d.path, err)
	}
	return nil
}
