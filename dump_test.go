package bcltools

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDump(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind codec.Kind
		in   string
		out  string
	}{
		{
			kind: codec.KindBCL,
			in:   "A I\nN #\n\nC 5\n",
			out:  "3\n10100000\tA\tI\n00000000\tN\t!\n01010001\tC\t5\n",
		},
		{
			kind: codec.KindLOCS,
			in:   "100.5 200.25\n1 2\n",
			out:  "1\t1\t2\n100.5\t200.25\n1\t2\n",
		},
		{
			kind: codec.KindFILTER,
			in:   "N\nY\nN\n",
			out:  "0\t3\t3\nN\nY\nN\n",
		},
		{
			kind: codec.KindBCI,
			in:   "1101 2\n1102 1\n",
			out:  "0\t2\n1101\t2\n1102\t1\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			path := filepath.Join(dir, "test"+tt.kind.Extension())
			n, err := Encode(strings.NewReader(tt.in), path, tt.kind)
			require.Nil(t, err)
			assert.Equal(t, int64(strings.Count(tt.out, "\n")-1), n)

			var out bytes.Buffer
			require.Nil(t, Dump(&out, path, tt.kind, false))
			assert.Equal(t, tt.out, out.String())

			out.Reset()
			require.Nil(t, Dump(&out, path, tt.kind, true))
			assert.Equal(t, tt.out[:strings.IndexByte(tt.out, '\n')+1], out.String())
		})
	}
}

// gzipFile writes a gzip-wrapped copy of src to dst.
func gzipFile(t *testing.T, src, dst string) {
	data, err := os.ReadFile(src)
	require.Nil(t, err)
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err = zw.Write(data)
	require.Nil(t, err)
	require.Nil(t, zw.Close())
	require.Nil(t, os.WriteFile(dst, buf.Bytes(), 0644))
}

func TestDump_Gzipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0001.bcl")
	_, err := Encode(strings.NewReader("A I\nN #\nC 5\n"), path, codec.KindBCL)
	require.Nil(t, err)
	gzipFile(t, path, path+".gz")

	var plain, gzipped bytes.Buffer
	require.Nil(t, Dump(&plain, path, codec.KindBCL, false))
	require.Nil(t, Dump(&gzipped, path+".gz", codec.KindBCL, false))
	assert.Equal(t, "3\n10100000\tA\tI\n00000000\tN\t!\n01010001\tC\t5\n", gzipped.String())
	assert.Equal(t, plain.String(), gzipped.String())

	gzipped.Reset()
	require.Nil(t, Dump(&gzipped, path+".gz", codec.KindBCL, true))
	assert.Equal(t, "3\n", gzipped.String())
}

func TestDump_GzippedTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s_1.locs")
	locs := codec.NewFile(path, codec.Locs{})
	require.Nil(t, locs.WriteHeader(codec.Locs{}.Header(1)...))
	require.Nil(t, locs.AppendRecord(float32(1), float32(2)))
	require.Nil(t, locs.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.Nil(t, err)
	_, err = f.Write([]byte{0, 0})
	require.Nil(t, err)
	require.Nil(t, f.Close())
	gzipFile(t, path, path+".gz")

	var out bytes.Buffer
	err = Dump(&out, path+".gz", codec.KindLOCS, false)
	assert.ErrorIs(t, err, ErrFormat)
	assert.Equal(t, "1\t1\t1\n1\t2\n", out.String())

	short := filepath.Join(dir, "short.locs")
	require.Nil(t, os.WriteFile(short, []byte{1, 0, 0}, 0644))
	gzipFile(t, short, short+".gz")
	assert.ErrorIs(t, Dump(io.Discard, short+".gz", codec.KindLOCS, false), ErrFormat)
}

func TestEncode_RejectsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bcl")
	_, err := Encode(strings.NewReader("A I\nX I\n"), path, codec.KindBCL)
	assert.ErrorIs(t, err, ErrEncoding)
	assert.True(t, strings.Contains(err.Error(), "line 2"))
	assert.NoFileExists(t, path)
}

func TestDump_ShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.locs")
	require.Nil(t, os.WriteFile(path, []byte{1, 0, 0}, 0644))

	err := Dump(io.Discard, path, codec.KindLOCS, false)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestDump_PartialRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.locs")
	locs := codec.NewFile(path, codec.Locs{})
	require.Nil(t, locs.WriteHeader(codec.Locs{}.Header(1)...))
	require.Nil(t, locs.AppendRecord(float32(1), float32(2)))
	require.Nil(t, locs.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.Nil(t, err)
	_, err = f.Write([]byte{0, 0})
	require.Nil(t, err)
	require.Nil(t, f.Close())

	// complete records come out before the error
	var out bytes.Buffer
	err = Dump(&out, path, codec.KindLOCS, false)
	assert.ErrorIs(t, err, model.ErrFormat)
	assert.Equal(t, "1\t1\t1\n1\t2\n", out.String())
}

func TestDump_ClosedPipe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bcl")
	_, err := Encode(strings.NewReader("A I\nC I\n"), path, codec.KindBCL)
	require.Nil(t, err)

	pr, pw := io.Pipe()
	require.Nil(t, pr.Close())
	err = Dump(pw, path, codec.KindBCL, false)
	assert.ErrorIs(t, err, ErrSinkClosed)
}

func TestDump_ClosedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.filter")
	_, err := Encode(strings.NewReader("Y\n"), path, codec.KindFILTER)
	require.Nil(t, err)

	sink, err := os.Create(filepath.Join(dir, "sink.txt"))
	require.Nil(t, err)
	require.Nil(t, sink.Close())

	err = Dump(sink, path, codec.KindFILTER, true)
	assert.ErrorIs(t, err, ErrSinkClosed)
}
