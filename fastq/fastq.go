// Package fastq reads four-line FASTQ records from plain or compressed
// streams and extracts the Illumina header fields the converter needs.
package fastq

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bcltools/bcltools/model"
)

// Record is one FASTQ entry. ID is the header line without its '@'.
type Record struct {
	ID   []byte
	Seq  []byte
	Qual []byte
}

// Reader reads strict four-line records: header, sequence, '+' line,
// quality. Wrapped sequences are not supported.
type Reader struct {
	br   *bufio.Reader
	line int
}

func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, 64*1024)}
}

// Read returns the next record, or io.EOF once the stream ends cleanly
// between records. Blank lines between records are skipped, and the
// returned slices stay valid across calls.
func (r *Reader) Read() (*Record, error) {
	var id []byte
	for len(id) == 0 {
		line, err := r.readLine()
		if err != nil {
			return nil, err
		}
		id = line
	}
	if id[0] != '@' {
		return nil, r.formatError("id line does not start with @")
	}

	seq, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}

	plus, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}
	if len(plus) == 0 || plus[0] != '+' {
		return nil, r.formatError("plus line does not start with +")
	}

	qual, err := r.readLine()
	if err != nil {
		return nil, r.truncated(err)
	}
	if len(seq) != len(qual) {
		return nil, r.formatError(fmt.Sprintf("sequence length %d does not match quality length %d", len(seq), len(qual)))
	}

	return &Record{ID: id[1:], Seq: seq, Qual: qual}, nil
}

// readLine returns one line without its line ending. A final line with no
// newline is returned as is; io.EOF only comes back with no data.
func (r *Reader) readLine() ([]byte, error) {
	line, err := r.br.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	r.line++
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

func (r *Reader) truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return r.formatError("record truncated")
	}
	return err
}

func (r *Reader) formatError(msg string) error {
	return fmt.Errorf("%w: fastq line %d: %s", model.ErrFormat, r.line, msg)
}
