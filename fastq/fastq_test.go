package fastq

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bcltools/bcltools/model"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "@M1:7:FC1:1:1101:100:200 1:N:0:1\nACGT\n+\nIIII\n" +
	"@M1:7:FC1:1:1101:101.5:201 1:Y:0:1\nNNCA\n+\n#!#I\n"

func TestReader_Read(t *testing.T) {
	r := NewReader(strings.NewReader(sample))

	rec, err := r.Read()
	require.Nil(t, err)
	assert.Equal(t, "M1:7:FC1:1:1101:100:200 1:N:0:1", string(rec.ID))
	assert.Equal(t, "ACGT", string(rec.Seq))
	assert.Equal(t, "IIII", string(rec.Qual))

	rec2, err := r.Read()
	require.Nil(t, err)
	assert.Equal(t, "NNCA", string(rec2.Seq))
	// the first record is not overwritten
	assert.Equal(t, "ACGT", string(rec.Seq))

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReader_NoTrailingNewlineAndCRLF(t *testing.T) {
	r := NewReader(strings.NewReader("@a 1:N:0:1\r\nAC\r\n+\r\nII"))
	rec, err := r.Read()
	require.Nil(t, err)
	assert.Equal(t, "AC", string(rec.Seq))
	assert.Equal(t, "II", string(rec.Qual))

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReader_Malformed(t *testing.T) {
	for name, input := range map[string]string{
		"no at":      "a\nAC\n+\nII\n",
		"no plus":    "@a\nAC\n-\nII\n",
		"length":     "@a\nACG\n+\nII\n",
		"truncated":  "@a\nAC\n",
		"only label": "@a",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewReader(strings.NewReader(input)).Read()
			assert.ErrorIs(t, err, model.ErrFormat)
		})
	}
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader([]byte("@M1:7:FC1:2:1102:100.5:200 1:Y:0:ATCACG"))
	require.Nil(t, err)
	assert.Equal(t, Header{
		Instrument: "M1", Run: 7, Flowcell: "FC1", Lane: 2, Tile: 1102,
		X: 100.5, Y: 200, Read: 1, Filtered: "Y", Control: 0, Sample: "ATCACG",
	}, h)

	for _, bad := range []string{
		"M1:7:FC1:2:1102:100:200",
		"M1:7:FC1:2:1102:100 1:N:0:1",
		"M1:7:FC1:x:1102:100:200 1:N:0:1",
		"M1:7:FC1:2:1102:1e:200 1:N:0:1",
		"M1:7:FC1:2:1102:100:200 1:N:0",
	} {
		_, err := ParseHeader([]byte(bad))
		assert.ErrorIs(t, err, model.ErrFormat, bad)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "M1:7:FC1:1:1101:100:200", string(Name([]byte("@M1:7:FC1:1:1101:100:200 2:N:0:1"))))
	assert.Equal(t, "solo", string(Name([]byte("solo"))))
}

func TestDetectCompression(t *testing.T) {
	for head, want := range map[string]Compression{
		"":                       None,
		"@read":                  None,
		"\x1f\x8b\x08":           Gzip,
		"\xff\x06\x00\x00sNaPpY": Snappy,
		"\x04\x22\x4d\x18\x64":   LZ4,
	} {
		got, err := DetectCompression([]byte(head))
		assert.Nil(t, err)
		assert.Equal(t, want, got)
	}

	_, err := DetectCompression([]byte("BZh9"))
	assert.ErrorIs(t, err, model.ErrFormat)
}

func compressed(t *testing.T, c Compression, data string) []byte {
	var buf bytes.Buffer
	var w io.WriteCloser
	switch c {
	case Gzip:
		w = gzip.NewWriter(&buf)
	case Snappy:
		w = snappy.NewBufferedWriter(&buf)
	case LZ4:
		w = lz4.NewWriter(&buf)
	default:
		return []byte(data)
	}
	_, err := w.Write([]byte(data))
	require.Nil(t, err)
	require.Nil(t, w.Close())
	return buf.Bytes()
}

func TestDecompress(t *testing.T) {
	for _, c := range []Compression{None, Gzip, Snappy, LZ4} {
		t.Run(c.String(), func(t *testing.T) {
			rc, got, err := Decompress(bytes.NewReader(compressed(t, c, sample)))
			require.Nil(t, err)
			defer rc.Close()
			assert.Equal(t, c, got)

			data, err := io.ReadAll(rc)
			assert.Nil(t, err)
			assert.Equal(t, sample, string(data))
		})
	}
}

func TestFileSource_Probe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "r1.fastq.gz")
	require.Nil(t, os.WriteFile(path, compressed(t, Gzip, sample), 0644))

	stats, err := Probe(FileSource{Path: path})
	require.Nil(t, err)
	assert.Equal(t, Stats{ReadLength: 4, Records: 2}, stats)

	// probing twice reads from the start again
	stats, err = Probe(FileSource{Path: path})
	require.Nil(t, err)
	assert.Equal(t, 2, stats.Records)
}

func TestProbe_Errors(t *testing.T) {
	_, err := Probe(FileSource{Path: filepath.Join(t.TempDir(), "missing.fastq")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Probe(BytesSource{Label: "bad", Data: []byte("PK\x03\x04")})
	assert.ErrorIs(t, err, model.ErrFormat)

	_, err = Probe(BytesSource{Label: "cut", Data: []byte("@a\nAC\n+\n")})
	assert.ErrorIs(t, err, model.ErrFormat)

	stats, err := Probe(BytesSource{Label: "empty"})
	assert.Nil(t, err)
	assert.Equal(t, Stats{}, stats)
}
