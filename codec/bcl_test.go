package codec

import (
	"path/filepath"
	"testing"

	"github.com/bcltools/bcltools/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseCall_RoundTrip(t *testing.T) {
	for base := BaseA; base <= BaseT; base++ {
		for q := uint8(0); q <= MaxQuality; q++ {
			b, err := EncodeBaseCall(Call(base, q))
			require.Nil(t, err)

			got := DecodeBaseCall(b)
			if base == BaseA && q == 0 {
				// shares the reserved no-call byte
				assert.True(t, got.IsNoCall())
				continue
			}
			assert.False(t, got.IsNoCall())
			assert.Equal(t, base, got.Base)
			assert.Equal(t, q, got.Quality)
		}
	}
}

func TestBaseCall_NoCall(t *testing.T) {
	for _, q := range []byte{'!', '#', 'I', '`'} {
		bc, err := ParseBaseCall('N', q)
		require.Nil(t, err)
		assert.True(t, bc.IsNoCall())

		b, err := EncodeBaseCall(bc)
		require.Nil(t, err)
		assert.Equal(t, byte(0), b)
	}

	got := DecodeBaseCall(0)
	assert.True(t, got.IsNoCall())
	base, _ := got.Letters()
	assert.Equal(t, byte('N'), base)
}

func TestBaseCall_BaseAQualityZeroCollision(t *testing.T) {
	a, err := ParseBaseCall('A', '!')
	require.Nil(t, err)
	assert.False(t, a.IsNoCall())

	b, err := EncodeBaseCall(a)
	require.Nil(t, err)
	assert.Equal(t, byte(0), b)
	assert.True(t, DecodeBaseCall(b).IsNoCall())
}

func TestEncodeBaseCall(t *testing.T) {
	b, err := EncodeBaseCall(Call(BaseG, 40))
	assert.Nil(t, err)
	assert.Equal(t, byte(40<<2|2), b)

	_, err = EncodeBaseCall(Call(BaseT, MaxQuality+1))
	assert.ErrorIs(t, err, model.ErrEncoding)

	_, err = EncodeBaseCall(Call(Base(4), 1))
	assert.ErrorIs(t, err, model.ErrEncoding)
}

func TestParseBaseCall(t *testing.T) {
	bc, err := ParseBaseCall('C', 'I')
	assert.Nil(t, err)
	assert.Equal(t, Call(BaseC, 40), bc)
	assert.Equal(t, "CI", bc.String())

	_, err = ParseBaseCall('X', 'I')
	assert.ErrorIs(t, err, model.ErrEncoding)

	_, err = ParseBaseCall('A', ' ')
	assert.ErrorIs(t, err, model.ErrEncoding)

	_, err = ParseBaseCall('A', 'a')
	assert.ErrorIs(t, err, model.ErrEncoding)
}

func TestBcl_FormatRecord(t *testing.T) {
	line, err := Bcl{}.FormatRecord(model.Values{uint8(40<<2 | 3)})
	assert.Nil(t, err)
	assert.Equal(t, "10100011\tT\tI", line)

	line, err = Bcl{}.FormatRecord(model.Values{uint8(0)})
	assert.Nil(t, err)
	assert.Equal(t, "00000000\tN\t!", line)

	_, err = Bcl{}.FormatRecord(model.Values{uint32(1)})
	assert.ErrorIs(t, err, model.ErrFormat)
}

func TestBcl_ParseRecord(t *testing.T) {
	values, err := Bcl{}.ParseRecord([]string{"G", "5"})
	assert.Nil(t, err)
	assert.Equal(t, []any{byte(20<<2 | 2)}, values)

	_, err = Bcl{}.ParseRecord([]string{"GG", "5"})
	assert.ErrorIs(t, err, model.ErrEncoding)

	_, err = Bcl{}.ParseRecord([]string{"G"})
	assert.ErrorIs(t, err, model.ErrEncoding)
}

func TestBcl_File(t *testing.T) {
	rf := NewFile(filepath.Join(t.TempDir(), "0001.bcl"), Bcl{})
	require.Nil(t, rf.WriteHeader(Bcl{}.Header(3)...))
	for _, bc := range []BaseCall{Call(BaseA, 30), NoCall(), Call(BaseT, 2)} {
		b, err := EncodeBaseCall(bc)
		require.Nil(t, err)
		require.Nil(t, rf.AppendRecord(b))
	}
	require.Nil(t, rf.Close())

	header, err := rf.ReadHeader()
	require.Nil(t, err)
	count, err := Bcl{}.Count(header)
	assert.Nil(t, err)
	assert.Equal(t, uint32(3), count)

	var calls []BaseCall
	for v, err := range rf.Records(true) {
		require.Nil(t, err)
		b, err := field[uint8](v, 0)
		require.Nil(t, err)
		calls = append(calls, DecodeBaseCall(b))
	}
	assert.Equal(t, []BaseCall{Call(BaseA, 30), NoCall(), Call(BaseT, 2)}, calls)
}

func TestBcl_NegativeCount(t *testing.T) {
	_, err := Bcl{}.Count(model.Values{int32(-1)})
	assert.ErrorIs(t, err, model.ErrFormat)

	_, err = Bcl{}.HeaderSchema().Pack(Bcl{}.Header(1 << 31)...)
	assert.ErrorIs(t, err, model.ErrEncoding)
}
