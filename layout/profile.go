package layout

import (
	"fmt"
	"strings"

	"github.com/bcltools/bcltools/model"
)

// Profile is the machine family an output tree is laid out for.
type Profile uint8

const (
	// ProfileA writes one flat directory per lane with one bcl per cycle
	// (NextSeq).
	ProfileA Profile = iota + 1
	// ProfileB splits every lane into the fixed tile list and every cycle
	// into its own subdirectory (MiSeq).
	ProfileB
	// ProfileC is the NovaSeq layout, which is not supported.
	ProfileC
)

const (
	MinLanes = 1
	MaxLanes = 4
)

var ErrUnsupportedMachine = fmt.Errorf("%w: unsupported machine", model.ErrConfiguration)

// miseqTiles is the canonical tile order of ProfileB: both surfaces, 14
// swaths each. Downstream tools expect exactly this list.
var miseqTiles = [...]int{
	1101, 1102, 1103, 1104, 1105, 1106, 1107, 1108, 1109, 1110, 1111, 1112, 1113, 1114,
	2101, 2102, 2103, 2104, 2105, 2106, 2107, 2108, 2109, 2110, 2111, 2112, 2113, 2114,
}

func (p Profile) String() string {
	switch p {
	case ProfileA:
		return "nextseq"
	case ProfileB:
		return "miseq"
	case ProfileC:
		return "novaseq"
	}
	return fmt.Sprintf("profile(%d)", uint8(p))
}

// ParseProfile accepts a machine name or the profile letter.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(s) {
	case "nextseq", "a":
		return ProfileA, nil
	case "miseq", "b":
		return ProfileB, nil
	case "novaseq", "c":
		return ProfileC, nil
	}
	return 0, fmt.Errorf("%w: unknown machine %q", model.ErrConfiguration, s)
}

// Validate fails for profiles whose layout cannot be produced.
func (p Profile) Validate() error {
	switch p {
	case ProfileA, ProfileB:
		return nil
	case ProfileC:
		return fmt.Errorf("%w: %s", ErrUnsupportedMachine, p)
	}
	return fmt.Errorf("%w: unknown machine %s", model.ErrConfiguration, p)
}

// Tiles returns the tile numbers of one lane in canonical order. ProfileA
// has a single unnamed tile and returns nil.
func (p Profile) Tiles() []int {
	if p != ProfileB {
		return nil
	}
	tiles := make([]int, len(miseqTiles))
	copy(tiles, miseqTiles[:])
	return tiles
}

// NumTiles is the size of the tile dimension of the file matrix.
func (p Profile) NumTiles() int {
	if p == ProfileB {
		return len(miseqTiles)
	}
	return 1
}

// HasBci reports whether the layout carries a per-lane bci index.
func (p Profile) HasBci() bool {
	return p == ProfileB
}

func ValidateLanes(lanes int) error {
	if lanes < MinLanes || lanes > MaxLanes {
		return fmt.Errorf("%w: lane count %d outside %d..%d", model.ErrConfiguration, lanes, MinLanes, MaxLanes)
	}
	return nil
}
