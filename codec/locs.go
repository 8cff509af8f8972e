package codec

import (
	"fmt"
	"strconv"

	"github.com/bcltools/bcltools/model"
)

/*
locs:
	- header: version(u32) = 1 | magic(f32) = 1.0 | count(u32)
	- record: x(f32) | y(f32), cluster position in pixels
*/

const (
	LocsVersion = 1
	LocsMagic   = float32(1.0)
)

type Position struct {
	X float32
	Y float32
}

func EncodePosition(p Position) []any {
	return []any{p.X, p.Y}
}

func DecodePosition(v model.Values) (Position, error) {
	x, err := field[float32](v, 0)
	if err != nil {
		return Position{}, err
	}
	y, err := field[float32](v, 1)
	if err != nil {
		return Position{}, err
	}
	return Position{X: x, Y: y}, nil
}

type Locs struct{}

var (
	locsHeader = model.Schema{
		{Name: "version", Type: model.Uint32},
		{Name: "magic", Type: model.Float32},
		{Name: "count", Type: model.Uint32},
	}
	locsRecord = model.Schema{
		{Name: "x", Type: model.Float32},
		{Name: "y", Type: model.Float32},
	}
)

func (Locs) Kind() Kind                 { return KindLOCS }
func (Locs) HeaderSchema() model.Schema { return locsHeader }
func (Locs) RecordSchema() model.Schema { return locsRecord }

func (Locs) Header(count uint32) []any {
	return []any{uint32(LocsVersion), LocsMagic, count}
}

func (Locs) Count(v model.Values) (uint32, error) {
	return countAt(v, 2)
}

func (Locs) FormatHeader(v model.Values) (string, error) {
	if _, err := countAt(v, 2); err != nil {
		return "", err
	}
	return formatValues(v), nil
}

func (Locs) FormatRecord(v model.Values) (string, error) {
	p, err := DecodePosition(v)
	if err != nil {
		return "", err
	}
	return formatFloat(p.X) + "\t" + formatFloat(p.Y), nil
}

// ParseRecord accepts "x y" in pixels.
func (Locs) ParseRecord(fields []string) ([]any, error) {
	if err := arity(fields, 2, KindLOCS); err != nil {
		return nil, err
	}
	var p [2]float32
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: locs coordinate %q: %v", model.ErrEncoding, f, err)
		}
		p[i] = float32(x)
	}
	return EncodePosition(Position{X: p[0], Y: p[1]}), nil
}
