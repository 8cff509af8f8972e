package bcltools

import (
	"errors"
	"fmt"

	"github.com/bcltools/bcltools/codec"
	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/metrics"
	"github.com/hashicorp/go-hclog"
)

// finalize closes every file of the matrix and patches its header with the
// number of records it really holds. Bci indexes are rewritten from counts.
// Any failure here leaves the tree unusable and is returned as is.
func finalize(s *layout.Structure, counts [][]int, sync bool, logger hclog.Logger) error {
	iterator := s.Files()
	defer iterator.Close()

	patched := 0
	for iterator.Rewind(); iterator.Valid(); iterator.Next() {
		slot, rf := iterator.Key(), iterator.Value()
		if sync {
			if err := rf.Sync(); err != nil {
				return err
			}
		}
		if err := rf.Close(); err != nil {
			return err
		}

		if slot.Kind == codec.KindBCI {
			if err := layout.WriteBci(rf, s.Profile().Tiles(), counts[slot.Lane]); err != nil {
				return fmt.Errorf("rewrite %s: %w", rf.Path, err)
			}
			patched++
			metrics.HeadersPatched.Inc()
			continue
		}

		c, err := codec.For(slot.Kind)
		if err != nil {
			return err
		}
		n, err := rf.RecordCount()
		if err != nil {
			return err
		}
		if want := counts[slot.Lane][slot.Tile]; n != int64(want) {
			logger.Warn("record count differs from routed clusters", "file", rf.Path, "records", n, "routed", want)
		}
		if n > int64(^uint32(0)) {
			return fmt.Errorf("%w: %s holds %d records", ErrEncoding, rf.Path, n)
		}
		if err := rf.PatchHeader(c.Header(uint32(n))...); err != nil {
			return fmt.Errorf("patch %s: %w", rf.Path, err)
		}
		patched++
		metrics.HeadersPatched.Inc()
	}
	logger.Debug("headers patched", "files", patched)
	return nil
}

// closeFiles releases every handle of the matrix without touching headers.
func closeFiles(s *layout.Structure) error {
	iterator := s.Files()
	defer iterator.Close()

	var errs []error
	for iterator.Rewind(); iterator.Valid(); iterator.Next() {
		errs = append(errs, iterator.Value().Close())
	}
	return errors.Join(errs...)
}
