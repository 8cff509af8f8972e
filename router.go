package bcltools

import (
	"fmt"

	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/model"
)

// bucket is the (lane, tile) pair a cluster is written to.
type bucket struct {
	lane, tile int
}

// router assigns consecutive clusters to buckets and counts what each bucket
// has received.
type router struct {
	profile layout.Profile
	quotas  [][]int
	written [][]int

	index     int
	current   bucket
	remaining int
	started   bool
}

func newRouter(profile layout.Profile, quotas [][]int) *router {
	written := make([][]int, len(quotas))
	for lane := range quotas {
		written[lane] = make([]int, len(quotas[lane]))
	}
	return &router{
		profile: profile,
		quotas:  quotas,
		written: written,
	}
}

// next returns the bucket of the next cluster and the number of clusters
// that bucket already holds. ProfileA deals clusters round-robin over lanes;
// ProfileB fills each tile of a lane in turn, lanes one after another.
func (r *router) next() (bucket, int, error) {
	var b bucket
	switch r.profile {
	case layout.ProfileB:
		for !r.started || r.remaining == 0 {
			if r.started {
				r.current.tile++
				if r.current.tile == len(r.quotas[r.current.lane]) {
					r.current.tile = 0
					r.current.lane++
				}
			}
			r.started = true
			if r.current.lane >= len(r.quotas) {
				return b, 0, fmt.Errorf("%w: cluster %d exceeds the partitioned total", model.ErrSynchronization, r.index)
			}
			r.remaining = r.quotas[r.current.lane][r.current.tile]
		}
		r.remaining--
		b = r.current
	default:
		b = bucket{lane: r.index % len(r.quotas)}
		if r.written[b.lane][0] >= r.quotas[b.lane][0] {
			return b, 0, fmt.Errorf("%w: cluster %d exceeds lane %d quota", model.ErrSynchronization, r.index, b.lane)
		}
	}
	mark := r.written[b.lane][b.tile]
	r.written[b.lane][b.tile]++
	r.index++
	return b, mark, nil
}

func (r *router) counts() [][]int {
	return r.written
}
