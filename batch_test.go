package bcltools

import (
	"path/filepath"
	"testing"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/fio"
	"github.com/bcltools/bcltools/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBclFile(t *testing.T, dir, name string) *model.RecordFile {
	rf := codec.NewFile(filepath.Join(dir, name), codec.Bcl{})
	require.Nil(t, rf.WriteHeader(codec.Bcl{}.Header(0)...))
	t.Cleanup(func() {
		_ = rf.Close()
	})
	return rf
}

func recordCount(t *testing.T, rf *model.RecordFile) int64 {
	n, err := rf.RecordCount()
	require.Nil(t, err)
	return n
}

func TestBatch_Commit(t *testing.T) {
	dir := t.TempDir()
	f1, f2 := newBclFile(t, dir, "1.bcl"), newBclFile(t, dir, "2.bcl")

	b := newBatch(false)
	b.Reset(0)
	require.Nil(t, b.Put(f1, uint8(5)))
	require.Nil(t, b.Put(f2, uint8(6)))
	assert.Len(t, b.pendingWrites, 2)

	// nothing reaches the disk before the commit
	assert.Equal(t, int64(0), recordCount(t, f1))

	require.Nil(t, b.Commit())
	assert.Len(t, b.pendingWrites, 0)
	assert.False(t, f1.IsOpen())
	assert.Equal(t, int64(1), recordCount(t, f1))
	assert.Equal(t, int64(1), recordCount(t, f2))
}

func TestBatch_PutRejectsOutOfRange(t *testing.T) {
	f1 := newBclFile(t, t.TempDir(), "1.bcl")

	b := newBatch(true)
	b.Reset(0)
	err := b.Put(f1, 300)
	assert.ErrorIs(t, err, model.ErrEncoding)
	assert.Len(t, b.pendingWrites, 0)
	assert.Equal(t, int64(0), recordCount(t, f1))
}

func TestBatch_RollbackOnWriteFailure(t *testing.T) {
	dir := t.TempDir()
	f1, f2 := newBclFile(t, dir, "1.bcl"), newBclFile(t, dir, "2.bcl")

	b := newBatch(true)
	b.Reset(0)
	require.Nil(t, b.Put(f1, uint8(5)))
	require.Nil(t, b.Put(f2, uint8(6)))
	require.Nil(t, b.Commit())
	assert.Equal(t, fio.ModeAppend, f1.Mode())

	// a reader holding f2 makes the append fail after f1 was written
	require.Nil(t, f2.Close())
	require.Nil(t, f2.Open(fio.ModeRead))

	b.Reset(1)
	require.Nil(t, b.Put(f1, uint8(7)))
	require.Nil(t, b.Put(f2, uint8(8)))
	err := b.Commit()
	assert.ErrorIs(t, err, model.ErrFileBusy)
	assert.Len(t, b.pendingWrites, 0)

	assert.Equal(t, int64(1), recordCount(t, f1))
	require.Nil(t, f2.Close())
	assert.Equal(t, int64(1), recordCount(t, f2))

	var records []model.Values
	require.Nil(t, f1.Close())
	for record, err := range f1.Records(true) {
		require.Nil(t, err)
		records = append(records, record)
	}
	assert.Equal(t, []model.Values{{uint8(5)}}, records)
}
