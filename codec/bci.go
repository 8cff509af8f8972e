package codec

import (
	"fmt"
	"strconv"

	"github.com/bcltools/bcltools/model"
)

/*
bci:
	- header: version(u32) = 0 | tiles(u32)
	- record: tile number(u32) | clusters in tile(u32)

The cluster counts of a lane's bci file add up to the lane's cluster count.
*/

const BciVersion = 0

type TileCount struct {
	Tile     uint32
	Clusters uint32
}

func EncodeTileCount(tc TileCount) []any {
	return []any{tc.Tile, tc.Clusters}
}

func DecodeTileCount(v model.Values) (TileCount, error) {
	tile, err := field[uint32](v, 0)
	if err != nil {
		return TileCount{}, err
	}
	clusters, err := field[uint32](v, 1)
	if err != nil {
		return TileCount{}, err
	}
	return TileCount{Tile: tile, Clusters: clusters}, nil
}

type Bci struct{}

var (
	bciHeader = model.Schema{
		{Name: "version", Type: model.Uint32},
		{Name: "tiles", Type: model.Uint32},
	}
	bciRecord = model.Schema{
		{Name: "tile", Type: model.Uint32},
		{Name: "clusters", Type: model.Uint32},
	}
)

func (Bci) Kind() Kind                 { return KindBCI }
func (Bci) HeaderSchema() model.Schema { return bciHeader }
func (Bci) RecordSchema() model.Schema { return bciRecord }

// Header takes the number of tiles, the entry count of a bci file.
func (Bci) Header(tiles uint32) []any {
	return []any{uint32(BciVersion), tiles}
}

func (Bci) Count(v model.Values) (uint32, error) {
	return countAt(v, 1)
}

func (Bci) FormatHeader(v model.Values) (string, error) {
	if _, err := countAt(v, 1); err != nil {
		return "", err
	}
	return formatValues(v), nil
}

func (Bci) FormatRecord(v model.Values) (string, error) {
	tc, err := DecodeTileCount(v)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d\t%d", tc.Tile, tc.Clusters), nil
}

// ParseRecord accepts "tile clusters".
func (Bci) ParseRecord(fields []string) ([]any, error) {
	if err := arity(fields, 2, KindBCI); err != nil {
		return nil, err
	}
	var n [2]uint32
	for i, f := range fields {
		x, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bci field %q: %v", model.ErrEncoding, f, err)
		}
		n[i] = uint32(x)
	}
	return EncodeTileCount(TileCount{Tile: n[0], Clusters: n[1]}), nil
}
