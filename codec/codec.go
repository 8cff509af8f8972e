package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bcltools/bcltools/model"
)

// Kind names one of the sequencer file formats.
type Kind uint8

const (
	KindBCL Kind = iota + 1
	KindLOCS
	KindFILTER
	KindBCI
)

func (k Kind) String() string {
	switch k {
	case KindBCL:
		return "bcl"
	case KindLOCS:
		return "locs"
	case KindFILTER:
		return "filter"
	case KindBCI:
		return "bci"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Extension is the file suffix of the kind, dot included.
func (k Kind) Extension() string {
	return "." + k.String()
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "bcl":
		return KindBCL, nil
	case "locs":
		return KindLOCS, nil
	case "filter":
		return KindFILTER, nil
	case "bci":
		return KindBCI, nil
	}
	return 0, fmt.Errorf("%w: unknown file kind %q", model.ErrConfiguration, s)
}

// Codec describes one file format: its byte layout and how its values map
// to and from text. Implementations hold no state and do no I/O.
type Codec interface {
	Kind() Kind
	HeaderSchema() model.Schema
	RecordSchema() model.Schema

	// Header returns the header values of a file holding count entries.
	Header(count uint32) []any
	// Count reads the entry count back out of a decoded header.
	Count(model.Values) (uint32, error)

	FormatHeader(model.Values) (string, error)
	FormatRecord(model.Values) (string, error)
	// ParseRecord turns the whitespace-separated fields of one text line
	// into record values.
	ParseRecord(fields []string) ([]any, error)
}

var codecs = map[Kind]Codec{
	KindBCL:    Bcl{},
	KindLOCS:   Locs{},
	KindFILTER: Filter{},
	KindBCI:    Bci{},
}

func For(kind Kind) (Codec, error) {
	c, ok := codecs[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %s", model.ErrConfiguration, kind)
	}
	return c, nil
}

// NewFile returns a record file laid out according to c.
func NewFile(path string, c Codec) *model.RecordFile {
	return model.NewRecordFile(path, c.HeaderSchema(), c.RecordSchema())
}

func field[T any](v model.Values, i int) (T, error) {
	var zero T
	if i >= len(v) {
		return zero, fmt.Errorf("%w: expected at least %d values, got %d", model.ErrFormat, i+1, len(v))
	}
	x, ok := v[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: value %d is %T, want %T", model.ErrFormat, i, v[i], zero)
	}
	return x, nil
}

func countAt(v model.Values, i int) (uint32, error) {
	if i < len(v) {
		if n, ok := v[i].(int32); ok {
			if n < 0 {
				return 0, fmt.Errorf("%w: negative count %d", model.ErrFormat, n)
			}
			return uint32(n), nil
		}
	}
	return field[uint32](v, i)
}

func formatValues(v model.Values) string {
	parts := make([]string, len(v))
	for i, x := range v {
		switch n := x.(type) {
		case float32:
			parts[i] = formatFloat(n)
		default:
			parts[i] = fmt.Sprint(n)
		}
	}
	return strings.Join(parts, "\t")
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func arity(fields []string, n int, kind Kind) error {
	if len(fields) != n {
		return fmt.Errorf("%w: %s record needs %d fields, got %d", model.ErrEncoding, kind, n, len(fields))
	}
	return nil
}
