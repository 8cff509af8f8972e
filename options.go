package bcltools

import (
	"fmt"
	"strings"

	"github.com/bcltools/bcltools/layout"
	"github.com/bcltools/bcltools/model"
	"github.com/hashicorp/go-hclog"
)

// HandlePolicy decides how long output files stay open during a run.
type HandlePolicy uint8

const (
	// HandleAuto keeps files open when the descriptor limit allows it and
	// falls back to HandleReopen otherwise.
	HandleAuto HandlePolicy = iota
	// HandleKeepOpen holds every file of the active buckets open until the
	// bucket is complete.
	HandleKeepOpen
	// HandleReopen opens, appends and closes a file for every record.
	HandleReopen
)

func (hp HandlePolicy) String() string {
	switch hp {
	case HandleAuto:
		return "auto"
	case HandleKeepOpen:
		return "keep-open"
	case HandleReopen:
		return "reopen"
	}
	return fmt.Sprintf("policy(%d)", uint8(hp))
}

func ParseHandlePolicy(s string) (HandlePolicy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return HandleAuto, nil
	case "keep-open", "keep":
		return HandleKeepOpen, nil
	case "reopen":
		return HandleReopen, nil
	}
	return 0, fmt.Errorf("%w: unknown handle policy %q", model.ErrConfiguration, s)
}

type options struct {
	profile      layout.Profile
	lanes        int
	handlePolicy HandlePolicy
	sync         bool
	logger       hclog.Logger
}

var defaultOptions = options{
	profile:      layout.ProfileA,
	lanes:        1,
	handlePolicy: HandleAuto,
}

type Option func(*options)

func WithProfile(profile layout.Profile) Option {
	return func(o *options) {
		o.profile = profile
	}
}

func WithLanes(lanes int) Option {
	return func(o *options) {
		o.lanes = lanes
	}
}

func WithHandlePolicy(policy HandlePolicy) Option {
	return func(o *options) {
		o.handlePolicy = policy
	}
}

// WithSync fsyncs every output file before its header is patched.
func WithSync(sync bool) Option {
	return func(o *options) {
		o.sync = sync
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func (o *options) validate() error {
	if err := o.profile.Validate(); err != nil {
		return err
	}
	if err := layout.ValidateLanes(o.lanes); err != nil {
		return err
	}
	switch o.handlePolicy {
	case HandleAuto, HandleKeepOpen, HandleReopen:
	default:
		return fmt.Errorf("%w: handle policy %s", model.ErrConfiguration, o.handlePolicy)
	}
	return nil
}
