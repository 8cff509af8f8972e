package codec

import (
	"fmt"

	"github.com/bcltools/bcltools/model"
)

/*
bcl:
	- header: count(i32)
	- record: one byte per cluster, bits 0-1 base (A, C, G, T = 0..3),
	  bits 2-7 quality number. The all-zero byte is reserved for no-call.

Base A with quality number 0 packs to the reserved zero byte as well, so it
reads back as a no-call. The on-disk layout has no room to tell them apart.
*/

// Base is a called nucleotide.
type Base uint8

const (
	BaseA Base = iota
	BaseC
	BaseG
	BaseT
)

const (
	baseLetters = "ACGT"

	NoCallLetter  = 'N'
	QualityOffset = 33
	MaxQuality    = 63
)

func (b Base) Letter() byte {
	return baseLetters[b&3]
}

// BaseCall is a decoded bcl record: either a call with its quality number
// or a no-call.
type BaseCall struct {
	Base    Base
	Quality uint8
	noCall  bool
}

func Call(base Base, quality uint8) BaseCall {
	return BaseCall{Base: base, Quality: quality}
}

func NoCall() BaseCall {
	return BaseCall{noCall: true}
}

func (bc BaseCall) IsNoCall() bool {
	return bc.noCall
}

// Letters returns the fastq base and quality characters of the call.
func (bc BaseCall) Letters() (base, quality byte) {
	if bc.noCall {
		return NoCallLetter, QualityOffset
	}
	return bc.Base.Letter(), bc.Quality + QualityOffset
}

func (bc BaseCall) String() string {
	b, q := bc.Letters()
	return string([]byte{b, q})
}

// ParseBaseCall reads one fastq base letter and its quality character.
// 'N' is a no-call whatever its quality.
func ParseBaseCall(base, quality byte) (BaseCall, error) {
	if base == NoCallLetter {
		return NoCall(), nil
	}
	var b Base
	switch base {
	case 'A':
		b = BaseA
	case 'C':
		b = BaseC
	case 'G':
		b = BaseG
	case 'T':
		b = BaseT
	default:
		return BaseCall{}, fmt.Errorf("%w: unrecognized base %q", model.ErrEncoding, base)
	}
	if quality < QualityOffset || quality > QualityOffset+MaxQuality {
		return BaseCall{}, fmt.Errorf("%w: quality %q outside %q..%q", model.ErrEncoding, quality, byte(QualityOffset), byte(QualityOffset+MaxQuality))
	}
	return Call(b, quality-QualityOffset), nil
}

func EncodeBaseCall(bc BaseCall) (byte, error) {
	if bc.noCall {
		return 0, nil
	}
	if bc.Base > BaseT {
		return 0, fmt.Errorf("%w: base number %d", model.ErrEncoding, bc.Base)
	}
	if bc.Quality > MaxQuality {
		return 0, fmt.Errorf("%w: quality number %d exceeds %d", model.ErrEncoding, bc.Quality, MaxQuality)
	}
	return bc.Quality<<2 | byte(bc.Base), nil
}

func DecodeBaseCall(b byte) BaseCall {
	if b == 0 {
		return NoCall()
	}
	return Call(Base(b&3), b>>2)
}

type Bcl struct{}

var (
	bclHeader = model.Schema{{Name: "count", Type: model.Int32}}
	bclRecord = model.Schema{{Name: "call", Type: model.Uint8}}
)

func (Bcl) Kind() Kind                 { return KindBCL }
func (Bcl) HeaderSchema() model.Schema { return bclHeader }
func (Bcl) RecordSchema() model.Schema { return bclRecord }

func (Bcl) Header(count uint32) []any {
	return []any{count}
}

func (Bcl) Count(v model.Values) (uint32, error) {
	return countAt(v, 0)
}

func (Bcl) FormatHeader(v model.Values) (string, error) {
	if _, err := countAt(v, 0); err != nil {
		return "", err
	}
	return formatValues(v), nil
}

func (Bcl) FormatRecord(v model.Values) (string, error) {
	b, err := field[uint8](v, 0)
	if err != nil {
		return "", err
	}
	base, quality := DecodeBaseCall(b).Letters()
	return fmt.Sprintf("%08b\t%c\t%c", b, base, quality), nil
}

// ParseRecord accepts "base quality" with fastq characters.
func (Bcl) ParseRecord(fields []string) ([]any, error) {
	if err := arity(fields, 2, KindBCL); err != nil {
		return nil, err
	}
	if len(fields[0]) != 1 || len(fields[1]) != 1 {
		return nil, fmt.Errorf("%w: bcl fields must be single characters, got %q %q", model.ErrEncoding, fields[0], fields[1])
	}
	bc, err := ParseBaseCall(fields[0][0], fields[1][0])
	if err != nil {
		return nil, err
	}
	b, err := EncodeBaseCall(bc)
	if err != nil {
		return nil, err
	}
	return []any{b}, nil
}
