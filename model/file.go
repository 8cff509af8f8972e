package model

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/bcltools/bcltools/fio"
)

// RecordFile is a binary file made of one fixed header followed by
// fixed-width records. Header length and record width never change after
// construction, and the file holds at most one open handle at a time.
type RecordFile struct {
	Path   string
	Header Schema
	Record Schema

	headerLen int64
	recordLen int64

	mode      fio.Mode
	ioManager fio.IOManager
	buf       []byte
}

func NewRecordFile(path string, header, record Schema) *RecordFile {
	return &RecordFile{
		Path:      path,
		Header:    header,
		Record:    record,
		headerLen: int64(header.Width()),
		recordLen: int64(record.Width()),
		buf:       make([]byte, record.Width()),
	}
}

func (rf *RecordFile) HeaderLen() int64 { return rf.headerLen }
func (rf *RecordFile) RecordLen() int64 { return rf.recordLen }
func (rf *RecordFile) Mode() fio.Mode   { return rf.mode }

func (rf *RecordFile) IsOpen() bool {
	return rf.mode != fio.ModeClosed
}

// Open acquires a handle. Opening in the mode already held is a no-op;
// asking for a different mode while open returns ErrFileBusy.
func (rf *RecordFile) Open(mode fio.Mode) error {
	if rf.mode == mode {
		return nil
	}
	if rf.IsOpen() {
		return fmt.Errorf("%w: %s is open for %s, wanted %s", ErrFileBusy, rf.Path, rf.mode, mode)
	}

	ioManager, err := fio.NewIOManager(rf.Path, mode)
	if err != nil {
		return err
	}
	rf.ioManager = ioManager
	rf.mode = mode
	return nil
}

func (rf *RecordFile) Close() error {
	if !rf.IsOpen() {
		return nil
	}
	err := rf.ioManager.Close()
	rf.ioManager = nil
	rf.mode = fio.ModeClosed
	return err
}

func (rf *RecordFile) Sync() error {
	if !rf.IsOpen() {
		return nil
	}
	return rf.ioManager.Sync()
}

// withHandle runs fn on a handle in the given mode, opening and closing one
// around fn if the file was closed.
func (rf *RecordFile) withHandle(mode fio.Mode, fn func(fio.IOManager) error) error {
	if rf.mode == mode {
		return fn(rf.ioManager)
	}
	if err := rf.Open(mode); err != nil {
		return err
	}
	err := fn(rf.ioManager)
	if cerr := rf.Close(); err == nil {
		err = cerr
	}
	return err
}

func (rf *RecordFile) ReadHeader() (Values, error) {
	var header Values
	err := rf.withHandle(fio.ModeRead, func(ioManager fio.IOManager) error {
		size, err := ioManager.Size()
		if err != nil {
			return err
		}
		if size < rf.headerLen {
			return rf.shortError(size)
		}
		buf := make([]byte, rf.headerLen)
		if _, err := ioManager.Read(buf, 0); err != nil {
			return err
		}
		header, err = rf.Header.Unpack(buf)
		return err
	})
	return header, err
}

// WriteHeader creates the file, or truncates it, leaving only the header.
func (rf *RecordFile) WriteHeader(values ...any) error {
	header, err := rf.Header.Pack(values...)
	if err != nil {
		return err
	}
	return rf.withHandle(fio.ModeWrite, func(ioManager fio.IOManager) error {
		if err := ioManager.Truncate(0); err != nil {
			return err
		}
		_, err := ioManager.WriteAt(header, 0)
		return err
	})
}

// PatchHeader overwrites bytes [0, header length) in place. Records after
// the header are left untouched. The file must already hold a full header.
func (rf *RecordFile) PatchHeader(values ...any) error {
	header, err := rf.Header.Pack(values...)
	if err != nil {
		return err
	}
	return rf.withHandle(fio.ModePatch, func(ioManager fio.IOManager) error {
		size, err := ioManager.Size()
		if err != nil {
			return err
		}
		if size < rf.headerLen {
			return rf.shortError(size)
		}
		_, err = ioManager.WriteAt(header, 0)
		return err
	})
}

// AppendRecord writes exactly one record at the end of the file. A closed
// file is opened for append and left open for the next record.
func (rf *RecordFile) AppendRecord(values ...any) error {
	if err := rf.Record.PackInto(rf.buf, values...); err != nil {
		return err
	}
	return rf.AppendRaw(rf.buf)
}

// AppendRaw appends one record that was already packed with the record schema.
func (rf *RecordFile) AppendRaw(record []byte) error {
	if int64(len(record)) != rf.recordLen {
		return fmt.Errorf("%w: %s takes %d byte records, got %d", ErrEncoding, rf.Path, rf.recordLen, len(record))
	}
	if err := rf.Open(fio.ModeAppend); err != nil {
		return err
	}
	n, err := rf.ioManager.Write(record)
	if err != nil {
		return err
	}
	if int64(n) != rf.recordLen {
		return fmt.Errorf("%s: short record write, %d of %d bytes", rf.Path, n, rf.recordLen)
	}
	return nil
}

// RecordCount returns the number of complete records physically on disk.
func (rf *RecordFile) RecordCount() (int64, error) {
	size, err := rf.size()
	if err != nil {
		return 0, err
	}
	if size < rf.headerLen {
		return 0, rf.shortError(size)
	}
	body := size - rf.headerLen
	if body%rf.recordLen != 0 {
		return 0, fmt.Errorf("%w: %s ends with a partial record", ErrFormat, rf.Path)
	}
	return body / rf.recordLen, nil
}

// TruncateRecords cuts the file back to its header plus n records.
func (rf *RecordFile) TruncateRecords(n int64) error {
	size := rf.headerLen + n*rf.recordLen
	switch rf.mode {
	case fio.ModeAppend, fio.ModeWrite, fio.ModePatch:
		return rf.ioManager.Truncate(size)
	}
	return rf.withHandle(fio.ModePatch, func(ioManager fio.IOManager) error {
		return ioManager.Truncate(size)
	})
}

// Records lazily decodes every record after the header. When skipHeader is
// false the decoded header is yielded first. The sequence holds a read handle
// while it runs and releases it when iteration stops; iterating again reopens
// the file from the start.
func (rf *RecordFile) Records(skipHeader bool) iter.Seq2[Values, error] {
	return func(yield func(Values, error) bool) {
		err := rf.withHandle(fio.ModeRead, func(ioManager fio.IOManager) error {
			size, err := ioManager.Size()
			if err != nil {
				return err
			}
			if size < rf.headerLen {
				return rf.shortError(size)
			}

			if !skipHeader {
				buf := make([]byte, rf.headerLen)
				if _, err := ioManager.Read(buf, 0); err != nil {
					return err
				}
				header, err := rf.Header.Unpack(buf)
				if err != nil {
					return err
				}
				if !yield(header, nil) {
					return errStop
				}
			}

			buf := make([]byte, rf.recordLen)
			for off := rf.headerLen; off < size; off += rf.recordLen {
				if off+rf.recordLen > size {
					return fmt.Errorf("%w: %s ends with a partial record", ErrFormat, rf.Path)
				}
				if _, err := ioManager.Read(buf, off); err != nil && err != io.EOF {
					return err
				}
				record, err := rf.Record.Unpack(buf)
				if err != nil {
					return err
				}
				if !yield(record, nil) {
					return errStop
				}
			}
			return nil
		})
		if err != nil && err != errStop {
			yield(nil, err)
		}
	}
}

var errStop = errors.New("stop")

func (rf *RecordFile) size() (int64, error) {
	if rf.IsOpen() {
		return rf.ioManager.Size()
	}
	info, err := os.Stat(rf.Path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (rf *RecordFile) shortError(size int64) error {
	return fmt.Errorf("%w: %s is %d bytes, header needs %d", ErrFormat, rf.Path, size, rf.headerLen)
}
