package fio

import (
	"errors"

	"golang.org/x/exp/mmap"
)

var ErrReadOnly = errors.New("fio: handle is read-only")

// MMapIO is a read-only IOManager backed by a memory map.
type MMapIO struct {
	reader *mmap.ReaderAt
}

func NewMMapIO(file string) (*MMapIO, error) {
	reader, err := mmap.Open(file)
	if err != nil {
		return nil, err
	}
	return &MMapIO{reader: reader}, nil
}

func (mio *MMapIO) Read(buf []byte, offset int64) (int, error) {
	return mio.reader.ReadAt(buf, offset)
}

func (mio *MMapIO) Write([]byte) (int, error) {
	return 0, ErrReadOnly
}

func (mio *MMapIO) WriteAt([]byte, int64) (int, error) {
	return 0, ErrReadOnly
}

func (mio *MMapIO) Size() (int64, error) {
	return int64(mio.reader.Len()), nil
}

func (mio *MMapIO) Truncate(int64) error {
	return ErrReadOnly
}

func (mio *MMapIO) Sync() error {
	return nil
}

func (mio *MMapIO) Close() error {
	return mio.reader.Close()
}
