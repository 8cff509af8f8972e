package bcltools

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/metrics"
)

// Encode reads text records from r, one per line with whitespace-separated
// fields, and writes them to a new binary file of the given kind at path.
// The header starts with a count of zero and is patched once every record is
// on disk. Blank lines are skipped. On error the partial file is removed.
func Encode(r io.Reader, path string, kind codec.Kind) (int64, error) {
	c, err := codec.For(kind)
	if err != nil {
		return 0, err
	}
	rf := codec.NewFile(path, c)
	if err := rf.WriteHeader(c.Header(0)...); err != nil {
		return 0, err
	}

	err = encodeRecords(r, rf.AppendRecord, c)
	if cerr := rf.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("%s: %w", path, err)
	}

	count, err := rf.RecordCount()
	if err != nil {
		return 0, err
	}
	if count > int64(^uint32(0)) {
		return 0, fmt.Errorf("%w: %s holds %d records", ErrEncoding, path, count)
	}
	if err := rf.PatchHeader(c.Header(uint32(count))...); err != nil {
		return 0, err
	}
	metrics.HeadersPatched.Inc()
	return count, nil
}

func encodeRecords(r io.Reader, appendRecord func(...any) error, c codec.Codec) error {
	written := metrics.RecordsWritten.WithLabelValues(c.Kind().String())
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		values, err := c.ParseRecord(fields)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := appendRecord(values...); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		written.Inc()
	}
	return scanner.Err()
}
