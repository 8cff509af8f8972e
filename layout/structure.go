package layout

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/model"
	"github.com/bcltools/bcltools/slotdir"
	"github.com/bcltools/bcltools/utils"
)

const (
	intensitiesDir = "Data/Intensities"
	baseCallsDir   = "BaseCalls"
)

var ErrNoSlot = errors.New("layout: no such file in the matrix")

// Structure is the lane × tile × cycle matrix of output files for one run.
// Every file is registered under a slot whose indices were checked against
// the profile topology; looking up anything else is an error.
type Structure struct {
	profile Profile
	lanes   int
	cycles  int

	intensitiesPath string
	baseCallsPath   string

	files slotdir.SlotDir
}

func New(profile Profile, basePath string, lanes, cycles int) (*Structure, error) {
	if err := ValidateLanes(lanes); err != nil {
		return nil, err
	}
	if cycles < 0 {
		return nil, fmt.Errorf("%w: negative cycle count %d", model.ErrConfiguration, cycles)
	}
	intensities := filepath.Join(basePath, filepath.FromSlash(intensitiesDir))
	return &Structure{
		profile:         profile,
		lanes:           lanes,
		cycles:          cycles,
		intensitiesPath: intensities,
		baseCallsPath:   filepath.Join(intensities, baseCallsDir),
		files:           slotdir.NewBTree(0),
	}, nil
}

func (s *Structure) Profile() Profile { return s.profile }
func (s *Structure) Lanes() int       { return s.lanes }
func (s *Structure) Cycles() int      { return s.cycles }
func (s *Structure) NumTiles() int    { return s.profile.NumTiles() }

// NumFiles is the number of files registered so far.
func (s *Structure) NumFiles() int { return s.files.Size() }

// Files iterates every registered file in slot order.
func (s *Structure) Files() slotdir.Iterator { return s.files.Iterator() }

// TileNumber is the on-disk tile number of a tile index.
func (s *Structure) TileNumber(tile int) int {
	if tiles := s.profile.Tiles(); tile < len(tiles) {
		return tiles[tile]
	}
	return 0
}

func laneName(lane int) string {
	return "L" + utils.PadNumber(3, lane+1)
}

func (s *Structure) BaseCallsLanePath(lane int) string {
	return filepath.Join(s.baseCallsPath, laneName(lane))
}

func (s *Structure) IntensitiesLanePath(lane int) string {
	return filepath.Join(s.intensitiesPath, laneName(lane))
}

func (s *Structure) CyclePath(lane, cycle int) string {
	return filepath.Join(s.BaseCallsLanePath(lane), fmt.Sprintf("C%d.1", cycle+1))
}

// fileStem is s_<lane> for lane-wide files and s_<lane>_<tile> for tiles.
func (s *Structure) fileStem(lane, tile int) string {
	if s.profile == ProfileB {
		return fmt.Sprintf("s_%d_%d", lane+1, s.TileNumber(tile))
	}
	return fmt.Sprintf("s_%d", lane+1)
}

func (s *Structure) BclPath(lane, tile, cycle int) string {
	if s.profile == ProfileB {
		return filepath.Join(s.CyclePath(lane, cycle), s.fileStem(lane, tile)+codec.KindBCL.Extension())
	}
	return filepath.Join(s.BaseCallsLanePath(lane), utils.PadNumber(4, cycle+1)+codec.KindBCL.Extension())
}

func (s *Structure) LocsPath(lane, tile int) string {
	return filepath.Join(s.IntensitiesLanePath(lane), s.fileStem(lane, tile)+codec.KindLOCS.Extension())
}

func (s *Structure) FilterPath(lane, tile int) string {
	return filepath.Join(s.IntensitiesLanePath(lane), s.fileStem(lane, tile)+codec.KindFILTER.Extension())
}

func (s *Structure) BciPath(lane int) string {
	return filepath.Join(s.BaseCallsLanePath(lane), fmt.Sprintf("s_%d", lane+1)+codec.KindBCI.Extension())
}

// MakeBaseCallsLaneFolders creates BaseCalls/L00n for every lane, plus one
// C<cycle>.1 subfolder per cycle under ProfileB.
func (s *Structure) MakeBaseCallsLaneFolders() error {
	if err := s.profile.Validate(); err != nil {
		return err
	}
	for lane := 0; lane < s.lanes; lane++ {
		if err := os.MkdirAll(s.BaseCallsLanePath(lane), 0o755); err != nil {
			return err
		}
		if s.profile != ProfileB {
			continue
		}
		for cycle := 0; cycle < s.cycles; cycle++ {
			if err := os.MkdirAll(s.CyclePath(lane, cycle), 0o755); err != nil {
				return err
			}
		}
	}
	return nil
}

// MakeIntensitiesLaneFolders creates Intensities/L00n for every lane.
func (s *Structure) MakeIntensitiesLaneFolders() error {
	if err := s.profile.Validate(); err != nil {
		return err
	}
	for lane := 0; lane < s.lanes; lane++ {
		if err := os.MkdirAll(s.IntensitiesLanePath(lane), 0o755); err != nil {
			return err
		}
	}
	return nil
}

// InitializeBclFiles writes one bcl per cycle (and per tile under ProfileB)
// for lane, each headed by its tile's provisional quota.
func (s *Structure) InitializeBclFiles(lane int, quotas []int) error {
	if err := s.checkQuotas(lane, quotas); err != nil {
		return err
	}
	for cycle := 0; cycle < s.cycles; cycle++ {
		for tile, quota := range quotas {
			slot := slotdir.Slot{Kind: codec.KindBCL, Lane: lane, Tile: tile, Cycle: cycle}
			if err := s.initialize(slot, s.BclPath(lane, tile, cycle), codec.Bcl{}, quota); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Structure) InitializeLocsFiles(lane int, quotas []int) error {
	if err := s.checkQuotas(lane, quotas); err != nil {
		return err
	}
	for tile, quota := range quotas {
		slot := slotdir.Slot{Kind: codec.KindLOCS, Lane: lane, Tile: tile}
		if err := s.initialize(slot, s.LocsPath(lane, tile), codec.Locs{}, quota); err != nil {
			return err
		}
	}
	return nil
}

func (s *Structure) InitializeFilterFiles(lane int, quotas []int) error {
	if err := s.checkQuotas(lane, quotas); err != nil {
		return err
	}
	for tile, quota := range quotas {
		slot := slotdir.Slot{Kind: codec.KindFILTER, Lane: lane, Tile: tile}
		if err := s.initialize(slot, s.FilterPath(lane, tile), codec.Filter{}, quota); err != nil {
			return err
		}
	}
	return nil
}

// InitializeBciFile writes the lane's bci index with one record per tile
// holding its provisional quota.
func (s *Structure) InitializeBciFile(lane int, quotas []int) error {
	if !s.profile.HasBci() {
		return fmt.Errorf("%w: %s has no bci index", model.ErrConfiguration, s.profile)
	}
	if err := s.checkQuotas(lane, quotas); err != nil {
		return err
	}
	slot := slotdir.Slot{Kind: codec.KindBCI, Lane: lane}
	if err := s.initialize(slot, s.BciPath(lane), codec.Bci{}, len(quotas)); err != nil {
		return err
	}
	return WriteBci(s.files.Get(slot), s.profile.Tiles(), quotas)
}

// WriteBci rewrites a bci file from scratch with one record per tile.
func WriteBci(rf *model.RecordFile, tiles, clusters []int) error {
	if err := rf.WriteHeader(codec.Bci{}.Header(uint32(len(tiles)))...); err != nil {
		return err
	}
	for i, tile := range tiles {
		tc := codec.TileCount{Tile: uint32(tile), Clusters: uint32(clusters[i])}
		if err := rf.AppendRecord(codec.EncodeTileCount(tc)...); err != nil {
			_ = rf.Close()
			return err
		}
	}
	return rf.Close()
}

// Build lays out the whole matrix: folders first, then every file of every
// lane initialized with the quotas of that lane's tiles.
func (s *Structure) Build(quotas [][]int) error {
	if len(quotas) != s.lanes {
		return fmt.Errorf("%w: %d lane quotas for %d lanes", model.ErrConfiguration, len(quotas), s.lanes)
	}
	if err := s.MakeBaseCallsLaneFolders(); err != nil {
		return err
	}
	if err := s.MakeIntensitiesLaneFolders(); err != nil {
		return err
	}
	for lane, laneQuotas := range quotas {
		if err := s.InitializeBclFiles(lane, laneQuotas); err != nil {
			return err
		}
		if err := s.InitializeLocsFiles(lane, laneQuotas); err != nil {
			return err
		}
		if err := s.InitializeFilterFiles(lane, laneQuotas); err != nil {
			return err
		}
		if s.profile.HasBci() {
			if err := s.InitializeBciFile(lane, laneQuotas); err != nil {
				return err
			}
		}
	}
	return nil
}

// File returns the file registered under slot after checking the slot
// against the matrix dimensions.
func (s *Structure) File(slot slotdir.Slot) (*model.RecordFile, error) {
	if err := s.checkSlot(slot); err != nil {
		return nil, err
	}
	rf := s.files.Get(slot)
	if rf == nil {
		return nil, fmt.Errorf("%w: %s not initialized", ErrNoSlot, slot)
	}
	return rf, nil
}

func (s *Structure) Bcl(lane, tile, cycle int) (*model.RecordFile, error) {
	return s.File(slotdir.Slot{Kind: codec.KindBCL, Lane: lane, Tile: tile, Cycle: cycle})
}

func (s *Structure) Locs(lane, tile int) (*model.RecordFile, error) {
	return s.File(slotdir.Slot{Kind: codec.KindLOCS, Lane: lane, Tile: tile})
}

func (s *Structure) Filter(lane, tile int) (*model.RecordFile, error) {
	return s.File(slotdir.Slot{Kind: codec.KindFILTER, Lane: lane, Tile: tile})
}

func (s *Structure) Bci(lane int) (*model.RecordFile, error) {
	return s.File(slotdir.Slot{Kind: codec.KindBCI, Lane: lane})
}

func (s *Structure) initialize(slot slotdir.Slot, path string, c codec.Codec, quota int) error {
	rf := codec.NewFile(path, c)
	if err := rf.WriteHeader(c.Header(uint32(quota))...); err != nil {
		return err
	}
	s.files.Put(slot, rf)
	return nil
}

func (s *Structure) checkQuotas(lane int, quotas []int) error {
	if err := s.profile.Validate(); err != nil {
		return err
	}
	if lane < 0 || lane >= s.lanes {
		return fmt.Errorf("%w: lane %d outside 0..%d", ErrNoSlot, lane, s.lanes-1)
	}
	if len(quotas) != s.NumTiles() {
		return fmt.Errorf("%w: %d tile quotas for %d tiles", model.ErrConfiguration, len(quotas), s.NumTiles())
	}
	for _, q := range quotas {
		if q < 0 || q > math.MaxInt32 {
			return fmt.Errorf("%w: quota %d", model.ErrEncoding, q)
		}
	}
	return nil
}

func (s *Structure) checkSlot(slot slotdir.Slot) error {
	if slot.Lane < 0 || slot.Lane >= s.lanes {
		return fmt.Errorf("%w: %s lane outside 0..%d", ErrNoSlot, slot, s.lanes-1)
	}
	switch slot.Kind {
	case codec.KindBCL:
		if slot.Cycle < 0 || slot.Cycle >= s.cycles {
			return fmt.Errorf("%w: %s cycle outside 0..%d", ErrNoSlot, slot, s.cycles-1)
		}
	case codec.KindLOCS, codec.KindFILTER:
		if slot.Cycle != 0 {
			return fmt.Errorf("%w: %s is not per-cycle", ErrNoSlot, slot)
		}
	case codec.KindBCI:
		if slot.Tile != 0 || slot.Cycle != 0 {
			return fmt.Errorf("%w: %s is lane-wide", ErrNoSlot, slot)
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrNoSlot, slot)
	}
	if slot.Tile < 0 || slot.Tile >= s.NumTiles() {
		return fmt.Errorf("%w: %s tile outside 0..%d", ErrNoSlot, slot, s.NumTiles()-1)
	}
	return nil
}
