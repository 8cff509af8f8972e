package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FieldType is a fixed-width little-endian primitive.
type FieldType uint8

const (
	Uint8 FieldType = iota + 1
	Int32
	Uint32
	Float32
)

func (ft FieldType) Width() int {
	switch ft {
	case Uint8:
		return 1
	case Int32, Uint32, Float32:
		return 4
	}
	return 0
}

func (ft FieldType) String() string {
	switch ft {
	case Uint8:
		return "u8"
	case Int32:
		return "i32"
	case Uint32:
		return "u32"
	case Float32:
		return "f32"
	}
	return fmt.Sprintf("type(%d)", uint8(ft))
}

type Field struct {
	Name string
	Type FieldType
}

// Schema is an ordered list of fields packed back to back with no padding.
type Schema []Field

// Values holds one decoded header or record. Unpack always produces the
// canonical Go type of each field: uint8, int32, uint32 or float32.
type Values []any

func (s Schema) Width() int {
	var width int
	for _, f := range s {
		width += f.Type.Width()
	}
	return width
}

// Pack encodes values in schema order. A value outside its field's range is
// rejected with ErrEncoding rather than truncated.
func (s Schema) Pack(values ...any) ([]byte, error) {
	buf := make([]byte, s.Width())
	if err := s.PackInto(buf, values...); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s Schema) PackInto(buf []byte, values ...any) error {
	if len(values) != len(s) {
		return fmt.Errorf("%w: schema has %d fields, got %d values", ErrEncoding, len(s), len(values))
	}
	if len(buf) < s.Width() {
		return fmt.Errorf("%w: buffer holds %d bytes, schema needs %d", ErrEncoding, len(buf), s.Width())
	}

	idx := 0
	for i, f := range s {
		if err := putField(buf[idx:], f, values[i]); err != nil {
			return err
		}
		idx += f.Type.Width()
	}
	return nil
}

func (s Schema) Unpack(data []byte) (Values, error) {
	if len(data) < s.Width() {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrFormat, s.Width(), len(data))
	}

	values := make(Values, len(s))
	idx := 0
	for i, f := range s {
		switch f.Type {
		case Uint8:
			values[i] = data[idx]
		case Int32:
			values[i] = int32(binary.LittleEndian.Uint32(data[idx:]))
		case Uint32:
			values[i] = binary.LittleEndian.Uint32(data[idx:])
		case Float32:
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[idx:]))
		default:
			return nil, fmt.Errorf("%w: field %s has unknown type", ErrFormat, f.Name)
		}
		idx += f.Type.Width()
	}
	return values, nil
}

func putField(buf []byte, f Field, v any) error {
	switch f.Type {
	case Uint8:
		n, ok := asInt64(v)
		if !ok || n < 0 || n > math.MaxUint8 {
			return rangeError(f, v)
		}
		buf[0] = byte(n)
	case Int32:
		n, ok := asInt64(v)
		if !ok || n < math.MinInt32 || n > math.MaxInt32 {
			return rangeError(f, v)
		}
		binary.LittleEndian.PutUint32(buf, uint32(int32(n)))
	case Uint32:
		n, ok := asInt64(v)
		if !ok || n < 0 || n > math.MaxUint32 {
			return rangeError(f, v)
		}
		binary.LittleEndian.PutUint32(buf, uint32(n))
	case Float32:
		var x float64
		switch fv := v.(type) {
		case float32:
			x = float64(fv)
		case float64:
			x = fv
		default:
			return rangeError(f, v)
		}
		if math.IsNaN(x) || math.Abs(x) > math.MaxFloat32 {
			return rangeError(f, v)
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
	default:
		return fmt.Errorf("%w: field %s has unknown type", ErrEncoding, f.Name)
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	}
	return 0, false
}

func rangeError(f Field, v any) error {
	return fmt.Errorf("%w: %v (%T) does not fit field %s:%s", ErrEncoding, v, v, f.Name, f.Type)
}
