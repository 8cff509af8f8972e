//go:build !linux && !darwin

package fio

import "errors"

func OpenFileLimit() (uint64, error) {
	return 0, errors.New("fio: open file limit unknown on this platform")
}
