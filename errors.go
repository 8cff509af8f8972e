package bcltools

import (
	"fmt"

	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/model"
)

var (
	ErrConfiguration      = model.ErrConfiguration
	ErrUnsupportedMachine = layout.ErrUnsupportedMachine
	ErrFormat             = model.ErrFormat
	ErrEncoding           = model.ErrEncoding
	ErrSynchronization    = model.ErrSynchronization

	ErrNoSources  = fmt.Errorf("%w: no fastq sources", model.ErrConfiguration)
	ErrDirInUse   = addPrefix("output directory is locked by another run")
	ErrSinkClosed = addPrefix("output sink closed")
)

func addPrefix(errStr string) error {
	return fmt.Errorf("bcltools err: %s", errStr)
}
