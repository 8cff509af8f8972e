package fio

import (
	"path/filepath"

	"github.com/gofrs/flock"
)

const flockName = ".bcltools.lock"

var _ FileLocker = (*flock.Flock)(nil)

// NewFlock returns the advisory lock guarding an output directory.
func NewFlock(dirPath string) *flock.Flock {
	return flock.New(filepath.Join(dirPath, flockName))
}
