package slotdir

import (
	"fmt"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/model"
)

// Slot addresses one file of the output matrix by zero-based indices.
// Tile is 0 when the machine has a single tile per lane, and Cycle is 0
// for files that are not per-cycle.
type Slot struct {
	Kind  codec.Kind
	Lane  int
	Tile  int
	Cycle int
}

func (s Slot) Less(than Slot) bool {
	if s.Kind != than.Kind {
		return s.Kind < than.Kind
	}
	if s.Lane != than.Lane {
		return s.Lane < than.Lane
	}
	if s.Tile != than.Tile {
		return s.Tile < than.Tile
	}
	return s.Cycle < than.Cycle
}

func (s Slot) String() string {
	return fmt.Sprintf("%s[lane=%d tile=%d cycle=%d]", s.Kind, s.Lane, s.Tile, s.Cycle)
}

// SlotDir defined the slot directory interface
// you can use some other data structure once you implement this interface
type SlotDir interface {
	Put(slot Slot, file *model.RecordFile) bool
	Get(slot Slot) *model.RecordFile
	Size() int
	Iterator() Iterator
}

// Iterator walks the directory in slot order.
type Iterator interface {
	Rewind()
	Next()
	Valid() bool
	Key() Slot
	Value() *model.RecordFile
	Close()
}
