package fio

import "fmt"

// Mode is the way a handle was opened. A record file holds at most one
// handle at a time, so the mode doubles as its open-state.
type Mode uint8

const (
	ModeClosed Mode = iota
	ModeRead
	ModeWrite  // create or truncate
	ModeAppend // create if missing, every write lands at the end
	ModePatch  // existing file only, positioned writes
)

func (m Mode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	case ModeAppend:
		return "append"
	case ModePatch:
		return "patch"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// IOManager can be custom in options
type IOManager interface {
	Read([]byte, int64) (int, error)
	Write([]byte) (int, error)
	WriteAt([]byte, int64) (int, error)
	Size() (int64, error)
	Truncate(int64) error
	Sync() error
	Close() error
}

// FileLocker is an advisory lock backed by a file that outlives the lock.
type FileLocker interface {
	TryLock() (bool, error)
	Unlock() error
}

// NewIOManager opens path in the given mode. Reads go through a memory map,
// everything else through a plain file descriptor.
func NewIOManager(path string, mode Mode) (IOManager, error) {
	switch mode {
	case ModeRead:
		return NewMMapIO(path)
	case ModeWrite, ModeAppend, ModePatch:
		return NewFileIO(path, mode)
	}
	return nil, fmt.Errorf("fio: cannot open %s in %s mode", path, mode)
}
