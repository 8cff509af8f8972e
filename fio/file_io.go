package fio

import "os"

// FileIO is the default implement for IOManager
type FileIO struct {
	fd *os.File
}

func NewFileIO(file string, mode Mode) (*FileIO, error) {
	var flag int
	switch mode {
	case ModeWrite:
		flag = os.O_CREATE | os.O_TRUNC | os.O_RDWR
	case ModeAppend:
		flag = os.O_CREATE | os.O_APPEND | os.O_WRONLY
	case ModePatch:
		// no O_CREATE: patching a file that vanished must fail
		flag = os.O_RDWR
	default:
		flag = os.O_RDONLY
	}
	fd, err := os.OpenFile(file, flag, 0644)
	if err != nil {
		return nil, err
	}
	return &FileIO{fd: fd}, nil
}

func (fio *FileIO) Read(buf []byte, offset int64) (int, error) {
	return fio.fd.ReadAt(buf, offset)
}

func (fio *FileIO) Write(data []byte) (int, error) {
	return fio.fd.Write(data)
}

func (fio *FileIO) WriteAt(data []byte, offset int64) (int, error) {
	return fio.fd.WriteAt(data, offset)
}

func (fio *FileIO) Size() (int64, error) {
	info, err := fio.fd.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (fio *FileIO) Truncate(size int64) error {
	return fio.fd.Truncate(size)
}

func (fio *FileIO) Sync() error {
	return fio.fd.Sync()
}

func (fio *FileIO) Close() error {
	return fio.fd.Close()
}
