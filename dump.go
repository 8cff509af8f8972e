package bcltools

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"syscall"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/metrics"
	"github.com/bcltools/bcltools/model"
)

// Dump decodes the binary file at path and writes it to w as text: the
// header on the first line, then one line per record unless headerOnly is
// set. Fields are tab-separated. Records are decoded one at a time, so memory
// use does not grow with the file. A gzip-wrapped file is decoded on the fly.
//
// When w stops accepting output, for example because the reading end of a
// pipe went away, Dump stops and returns an error wrapping ErrSinkClosed.
func Dump(w io.Writer, path string, kind codec.Kind, headerOnly bool) error {
	c, err := codec.For(kind)
	if err != nil {
		return err
	}

	gzipped, err := isGzip(path)
	if err != nil {
		return err
	}
	var (
		header  model.Values
		records iter.Seq2[model.Values, error]
	)
	if gzipped {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		header, records, err = gzipRecords(f, path, c)
		if err != nil {
			return err
		}
	} else {
		rf := codec.NewFile(path, c)
		header, err = rf.ReadHeader()
		if err != nil {
			return err
		}
		records = rf.Records(true)
	}

	line, err := c.FormatHeader(header)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	bw := bufio.NewWriter(w)
	if err := writeLine(bw, line); err != nil {
		return sinkError(err)
	}
	if !headerOnly {
		dumped := metrics.RecordsDumped.WithLabelValues(kind.String())
		for record, err := range records {
			if err != nil {
				_ = bw.Flush()
				return err
			}
			line, err := c.FormatRecord(record)
			if err != nil {
				_ = bw.Flush()
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := writeLine(bw, line); err != nil {
				return sinkError(err)
			}
			dumped.Inc()
		}
	}
	return sinkError(bw.Flush())
}

var gzipMagic = []byte{0x1f, 0x8b}

// isGzip reports whether the file at path starts with the gzip magic bytes.
func isGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(gzipMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, err
	}
	return bytes.Equal(head[:n], gzipMagic), nil
}

// gzipRecords reads the header of a gzip-wrapped file from r and returns it
// with a sequence over the records that follow. The stream is read forward
// once, so the sequence can only be ranged over a single time.
func gzipRecords(r io.Reader, path string, c codec.Codec) (model.Values, iter.Seq2[model.Values, error], error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}

	headerSchema, recordSchema := c.HeaderSchema(), c.RecordSchema()
	buf := make([]byte, headerSchema.Width())
	if n, err := io.ReadFull(zr, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, nil, fmt.Errorf("%w: %s decompresses to %d bytes, header needs %d", ErrFormat, path, n, len(buf))
		}
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	header, err := headerSchema.Unpack(buf)
	if err != nil {
		return nil, nil, err
	}

	records := func(yield func(model.Values, error) bool) {
		buf := make([]byte, recordSchema.Width())
		for {
			_, err := io.ReadFull(zr, buf)
			switch {
			case errors.Is(err, io.EOF):
				return
			case errors.Is(err, io.ErrUnexpectedEOF):
				yield(nil, fmt.Errorf("%w: %s ends with a partial record", ErrFormat, path))
				return
			case err != nil:
				yield(nil, fmt.Errorf("%s: %w", path, err))
				return
			}
			record, err := recordSchema.Unpack(buf)
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
	return header, records, nil
}

func writeLine(bw *bufio.Writer, line string) error {
	if _, err := bw.WriteString(line); err != nil {
		return err
	}
	return bw.WriteByte('\n')
}

// sinkError maps the ways a writer reports a vanished reader onto
// ErrSinkClosed.
func sinkError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("%w: %v", ErrSinkClosed, err)
	}
	return err
}
