package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchema_Width(t *testing.T) {
	s := Schema{{"a", Uint8}, {"b", Int32}, {"c", Uint32}, {"d", Float32}}
	assert.Equal(t, 13, s.Width())
	assert.Equal(t, 0, Schema{}.Width())
}

func TestSchema_PackLittleEndian(t *testing.T) {
	s := Schema{{"count", Int32}}
	data, err := s.Pack(-2)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, data)

	values, err := s.Unpack(data)
	assert.Nil(t, err)
	assert.Equal(t, Values{int32(-2)}, values)
}

func TestSchema_PackRanges(t *testing.T) {
	tests := []struct {
		name  string
		field FieldType
		value any
		ok    bool
	}{
		{"u8 max", Uint8, 255, true},
		{"u8 overflow", Uint8, 256, false},
		{"u8 negative", Uint8, -1, false},
		{"i32 min", Int32, math.MinInt32, true},
		{"i32 overflow", Int32, int64(math.MaxInt32) + 1, false},
		{"u32 max", Uint32, uint32(math.MaxUint32), true},
		{"u32 overflow", Uint32, int64(math.MaxUint32) + 1, false},
		{"u32 huge uint64", Uint32, uint64(math.MaxUint64), false},
		{"f32 from f64", Float32, 100.5, true},
		{"f32 overflow", Float32, math.MaxFloat64, false},
		{"f32 nan", Float32, math.NaN(), false},
		{"f32 from int", Float32, 1, false},
		{"string", Uint32, "1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Schema{{"v", tt.field}}.Pack(tt.value)
			if tt.ok {
				assert.Nil(t, err)
			} else {
				assert.ErrorIs(t, err, ErrEncoding)
			}
		})
	}
}

func TestSchema_PackArity(t *testing.T) {
	_, err := Schema{{"a", Uint8}, {"b", Uint8}}.Pack(1)
	assert.ErrorIs(t, err, ErrEncoding)
}

func TestSchema_UnpackShort(t *testing.T) {
	_, err := Schema{{"a", Uint32}}.Unpack([]byte{1, 2})
	assert.ErrorIs(t, err, ErrFormat)
}
