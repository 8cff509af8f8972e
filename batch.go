package bcltools

import (
	"errors"
	"fmt"

	"github.com/bcltools/bcltools/metrics"
	"github.com/bcltools/bcltools/model"
)

type pendingWrite struct {
	file   *model.RecordFile
	record []byte
}

// Batch stages the records of one cluster so that they land in every file
// of the cluster or in none of them. Records are packed when they are put,
// so an encoding error surfaces before anything touches the disk.
type Batch struct {
	// mark is the record count every staged file holds before the commit.
	mark     int64
	keepOpen bool

	pendingWrites []pendingWrite
}

func newBatch(keepOpen bool) *Batch {
	return &Batch{keepOpen: keepOpen}
}

// Reset drops everything staged and starts a batch over files that each hold
// mark records.
func (b *Batch) Reset(mark int64) {
	b.mark = mark
	b.pendingWrites = b.pendingWrites[:0]
}

func (b *Batch) Put(file *model.RecordFile, values ...any) error {
	n := len(b.pendingWrites)
	if n < cap(b.pendingWrites) {
		b.pendingWrites = b.pendingWrites[:n+1]
	} else {
		b.pendingWrites = append(b.pendingWrites, pendingWrite{})
	}

	pw := &b.pendingWrites[n]
	width := file.Record.Width()
	if cap(pw.record) < width {
		pw.record = make([]byte, width)
	}
	pw.file = file
	pw.record = pw.record[:width]
	if err := file.Record.PackInto(pw.record, values...); err != nil {
		b.pendingWrites = b.pendingWrites[:n]
		return fmt.Errorf("%s: %w", file.Path, err)
	}
	return nil
}

// Commit appends every staged record. If any append fails, every file the
// batch touched is cut back to mark records before the error is returned.
func (b *Batch) Commit() error {
	for i := range b.pendingWrites {
		pw := &b.pendingWrites[i]
		err := pw.file.AppendRaw(pw.record)
		if err == nil && !b.keepOpen {
			err = pw.file.Close()
		}
		if err != nil {
			return errors.Join(err, b.rollback(i))
		}
	}
	b.pendingWrites = b.pendingWrites[:0]
	return nil
}

// rollback truncates the files of writes 0..failed, the failed one included
// since it may hold a partial record.
func (b *Batch) rollback(failed int) error {
	metrics.ClusterRollbacks.Inc()

	var errs []error
	for i := 0; i <= failed; i++ {
		file := b.pendingWrites[i].file
		if err := file.TruncateRecords(b.mark); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", file.Path, err))
		}
		if !b.keepOpen {
			errs = append(errs, file.Close())
		}
	}
	b.pendingWrites = b.pendingWrites[:0]
	return errors.Join(errs...)
}
