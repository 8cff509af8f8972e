package model

import "fmt"

// The error taxonomy shared by every package of the module. Callers wrap
// these with context and test them with errors.Is.
var (
	ErrConfiguration   = addPrefix("invalid configuration")
	ErrFormat          = addPrefix("malformed file")
	ErrEncoding        = addPrefix("value not representable")
	ErrSynchronization = addPrefix("fastq sources out of sync")

	ErrFileBusy = addPrefix("file is open in another mode")
)

func addPrefix(errStr string) error {
	return fmt.Errorf("bcltools err: %s", errStr)
}
