package fastq

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bcltools/bcltools/model"
	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
)

// Compression is the wrapper a FASTQ stream came in.
type Compression uint8

const (
	None Compression = iota
	Gzip
	Snappy
	LZ4
)

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
	lz4Magic    = []byte{0x04, 0x22, 0x4d, 0x18}
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// DetectCompression looks at the first bytes of a stream. Plain FASTQ must
// start with '@'; an empty stream counts as plain.
func DetectCompression(head []byte) (Compression, error) {
	switch {
	case len(head) == 0:
		return None, nil
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip, nil
	case bytes.HasPrefix(head, snappyMagic):
		return Snappy, nil
	case bytes.HasPrefix(head, lz4Magic):
		return LZ4, nil
	case head[0] == '@':
		return None, nil
	}
	return None, fmt.Errorf("%w: unrecognized compression wrapper % x", model.ErrFormat, head[:min(len(head), 4)])
}

// Decompress sniffs r and returns a reader of the plain FASTQ text.
func Decompress(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(snappyMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, None, err
	}
	compression, err := DetectCompression(head)
	if err != nil {
		return nil, None, err
	}

	switch compression {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, compression, fmt.Errorf("%w: %v", model.ErrFormat, err)
		}
		return zr, compression, nil
	case Snappy:
		return io.NopCloser(snappy.NewReader(br)), compression, nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(br)), compression, nil
	}
	return io.NopCloser(br), compression, nil
}

// Source is a FASTQ input that can be read from the start more than once.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// FileSource is a FASTQ file on disk, plain or compressed.
type FileSource struct {
	Path string
}

func (fs FileSource) Name() string { return fs.Path }

func (fs FileSource) Open() (io.ReadCloser, error) {
	f, err := os.Open(fs.Path)
	if err != nil {
		return nil, err
	}
	rc, _, err := Decompress(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", fs.Path, err)
	}
	return &stackedCloser{Reader: rc, closers: []io.Closer{rc, f}}, nil
}

// BytesSource serves FASTQ data held in memory.
type BytesSource struct {
	Label string
	Data  []byte
}

func (bs BytesSource) Name() string { return bs.Label }

func (bs BytesSource) Open() (io.ReadCloser, error) {
	rc, _, err := Decompress(bytes.NewReader(bs.Data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", bs.Label, err)
	}
	return rc, nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (sc *stackedCloser) Close() error {
	var errs []error
	for _, c := range sc.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Stats is what a probe pass learns about a source.
type Stats struct {
	// ReadLength is the sequence length of the first record.
	ReadLength int
	Records    int
}

// Probe reads src once from the start, counting records.
func Probe(src Source) (Stats, error) {
	var stats Stats
	rc, err := src.Open()
	if err != nil {
		return stats, err
	}
	defer rc.Close()

	reader := NewReader(rc)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("%s: %w", src.Name(), err)
		}
		if stats.Records == 0 {
			stats.ReadLength = len(record.Seq)
		}
		stats.Records++
	}
}
