package fastq

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bcltools/bcltools/model"
)

// Header holds the fields of an Illumina read name:
//
//	@<instrument>:<run>:<flowcell>:<lane>:<tile>:<x>:<y> <read>:<is filtered>:<control>:<sample>
type Header struct {
	Instrument string
	Run        int
	Flowcell   string
	Lane       int
	Tile       int
	X          float64
	Y          float64

	Read int
	// Filtered is the raw is-filtered token, Y or N.
	Filtered string
	Control  int
	Sample   string
}

// ParseHeader parses a header line with or without its leading '@'.
func ParseHeader(id []byte) (Header, error) {
	var h Header
	id = bytes.TrimPrefix(id, []byte{'@'})
	first, second, ok := strings.Cut(string(id), " ")
	if !ok {
		return h, fmt.Errorf("%w: header %q has no comment part", model.ErrFormat, id)
	}

	loc := strings.Split(first, ":")
	if len(loc) != 7 {
		return h, fmt.Errorf("%w: header %q needs 7 location fields, has %d", model.ErrFormat, first, len(loc))
	}
	meta := strings.Split(strings.TrimSpace(second), ":")
	if len(meta) != 4 {
		return h, fmt.Errorf("%w: header %q needs 4 comment fields, has %d", model.ErrFormat, second, len(meta))
	}

	var err error
	h.Instrument = loc[0]
	h.Flowcell = loc[2]
	h.Filtered = meta[1]
	h.Sample = meta[3]
	if h.Run, err = atoi("run", loc[1]); err != nil {
		return h, err
	}
	if h.Lane, err = atoi("lane", loc[3]); err != nil {
		return h, err
	}
	if h.Tile, err = atoi("tile", loc[4]); err != nil {
		return h, err
	}
	if h.X, err = atof("x", loc[5]); err != nil {
		return h, err
	}
	if h.Y, err = atof("y", loc[6]); err != nil {
		return h, err
	}
	if h.Read, err = atoi("read", meta[0]); err != nil {
		return h, err
	}
	if h.Control, err = atoi("control", meta[2]); err != nil {
		return h, err
	}
	return h, nil
}

// Name is the read name shared by every segment of one cluster: the header
// up to the first space.
func Name(id []byte) []byte {
	id = bytes.TrimPrefix(id, []byte{'@'})
	if i := bytes.IndexByte(id, ' '); i >= 0 {
		return id[:i]
	}
	return id
}

func atoi(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: header field %s %q is not an integer", model.ErrFormat, name, s)
	}
	return n, nil
}

func atof(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: header field %s %q is not a number", model.ErrFormat, name, s)
	}
	return f, nil
}
