// Package matrix implements the resistor-weighted patch matrix: a sparse
// many-to-many connection set where every connection contributes a fixed,
// colour-derived gain and multiple sources sum onto one destination.
//
// One Router exists per signal domain (audio-rate, control-rate). The
// connection set is mutated only by the audio goroutine between blocks;
// resolution is a pure read of the committed set, so any number of
// destinations may be resolved concurrently.
package matrix

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/mesjetiu/synthigme-go/internal/pins"
)

var (
	ErrUnknownPin   = errors.New("unknown pin")
	ErrKindMismatch = errors.New("pin kind mismatch")
	ErrNotOutput    = errors.New("source pin is not an output")
	ErrNotInput     = errors.New("destination pin is not an input")
)

// SumMode selects how a destination's summed contribution is limited.
type SumMode int

const (
	// SumDirect applies no limiting; downstream stages carry the headroom risk.
	SumDirect SumMode = iota
	// SumClip hard-limits the sum to ±MaxSumGain.
	SumClip
	// SumSoftClip saturates smoothly, approaching but never reaching ±MaxSumGain.
	SumSoftClip
)

func (m SumMode) String() string {
	switch m {
	case SumClip:
		return "clip"
	case SumSoftClip:
		return "softClip"
	default:
		return "direct"
	}
}

// GainRange bounds the per-connection gain a colour may contribute.
type GainRange struct {
	Min float64
	Max float64
}

// Config holds the process-wide calibration for one matrix domain.
type Config struct {
	MatrixGain float64
	GainRange  GainRange
	SumMode    SumMode
	MaxSumGain float64
}

// DefaultConfig mirrors the hardware calibration: unity matrix gain and a
// soft ceiling of four summed unity sources.
func DefaultConfig() Config {
	return Config{
		MatrixGain: 1.0,
		GainRange:  GainRange{Min: 0, Max: 40},
		SumMode:    SumSoftClip,
		MaxSumGain: 4.0,
	}
}

func (c Config) Validate() error {
	if c.MatrixGain <= 0 {
		return fmt.Errorf("matrixGain must be > 0, got %g", c.MatrixGain)
	}
	if c.GainRange.Min < 0 {
		return fmt.Errorf("gainRange.min must be >= 0, got %g", c.GainRange.Min)
	}
	if c.GainRange.Max < c.GainRange.Min {
		return fmt.Errorf("gainRange.max %g below min %g", c.GainRange.Max, c.GainRange.Min)
	}
	if c.MaxSumGain < c.MatrixGain {
		return fmt.Errorf("maxSumGain %g below matrixGain %g", c.MaxSumGain, c.MatrixGain)
	}
	return nil
}

// Connection is one patched pin pair. The set is keyed by (Src, Dst):
// re-patching an existing pair replaces its colour.
type Connection struct {
	Src   int
	Dst   int
	Color pins.Color
}

type connKey struct {
	src, dst int
}

type tap struct {
	src  int
	gain float64
}

// Router owns the connection set for one domain and resolves destination
// sums against it. Staged mutations become visible only after Commit,
// which the owning goroutine calls at block boundaries.
type Router struct {
	cfg   Config
	table *pins.Table
	kind  pins.Kind

	staged   map[connKey]pins.Color
	resolved map[int][]tap
	dirty    bool
}

// NewRouter builds a router over the given pin table. All pins in the
// table must belong to the router's domain kind.
func NewRouter(kind pins.Kind, table *pins.Table, cfg Config) (*Router, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Router{
		cfg:      cfg,
		table:    table,
		kind:     kind,
		staged:   make(map[connKey]pins.Color),
		resolved: make(map[int][]tap),
	}, nil
}

func (r *Router) Config() Config {
	return r.cfg
}

// Check validates a prospective connection without mutating anything.
// It is safe to call from outside the audio goroutine.
func (r *Router) Check(src, dst int, color pins.Color) error {
	sp, ok := r.table.Lookup(src)
	if !ok {
		return fmt.Errorf("%w: source %d", ErrUnknownPin, src)
	}
	dp, ok := r.table.Lookup(dst)
	if !ok {
		return fmt.Errorf("%w: destination %d", ErrUnknownPin, dst)
	}
	if sp.Dir != pins.DirOutput {
		return fmt.Errorf("%w: %s", ErrNotOutput, sp.ID)
	}
	if dp.Dir != pins.DirInput {
		return fmt.Errorf("%w: %s", ErrNotInput, dp.ID)
	}
	if sp.Kind != r.kind || dp.Kind != r.kind {
		return fmt.Errorf("%w: %s (%s) -> %s (%s) in %s matrix",
			ErrKindMismatch, sp.ID, sp.Kind, dp.ID, dp.Kind, r.kind)
	}
	if !color.Selectable() {
		if _, err := pins.Resistance(color); err != nil {
			return err
		}
		return fmt.Errorf("%w: %v", pins.ErrReservedColor, color)
	}
	g, err := pins.Gain(color, pins.ReferenceResistance)
	if err != nil {
		return err
	}
	if g < r.cfg.GainRange.Min || g > r.cfg.GainRange.Max {
		return fmt.Errorf("gain %g for %v outside range [%g, %g]",
			g, color, r.cfg.GainRange.Min, r.cfg.GainRange.Max)
	}
	return nil
}

// Connect stages a connection. An existing (src, dst) pair is replaced,
// never duplicated. The change becomes audible after the next Commit.
func (r *Router) Connect(src, dst int, color pins.Color) error {
	if err := r.Check(src, dst, color); err != nil {
		return err
	}
	r.staged[connKey{src, dst}] = color
	r.dirty = true
	return nil
}

// Disconnect stages removal of a connection; it reports whether the pair
// was present.
func (r *Router) Disconnect(src, dst int) bool {
	key := connKey{src, dst}
	if _, ok := r.staged[key]; !ok {
		return false
	}
	delete(r.staged, key)
	r.dirty = true
	return true
}

// Commit publishes staged changes to the resolution table. Called by the
// audio goroutine at block boundaries only, never mid-block.
func (r *Router) Commit() {
	if !r.dirty {
		return
	}
	for dst := range r.resolved {
		delete(r.resolved, dst)
	}
	for key, color := range r.staged {
		g, err := pins.Gain(color, pins.ReferenceResistance)
		if err != nil {
			continue // staged set only ever holds checked colours
		}
		r.resolved[key.dst] = append(r.resolved[key.dst], tap{src: key.src, gain: g})
	}
	for _, taps := range r.resolved {
		sort.Slice(taps, func(i, j int) bool { return taps[i].src < taps[j].src })
	}
	r.dirty = false
}

// Resolve sums the gain-weighted contributions of every committed source
// feeding dst. read supplies the current value of a source pin.
func (r *Router) Resolve(dst int, read func(src int) float64) float64 {
	taps := r.resolved[dst]
	if len(taps) == 0 {
		return 0
	}
	sum := 0.0
	for _, tp := range taps {
		sum += read(tp.src) * tp.gain
	}
	sum *= r.cfg.MatrixGain
	switch r.cfg.SumMode {
	case SumClip:
		if sum > r.cfg.MaxSumGain {
			return r.cfg.MaxSumGain
		}
		if sum < -r.cfg.MaxSumGain {
			return -r.cfg.MaxSumGain
		}
		return sum
	case SumSoftClip:
		return r.cfg.MaxSumGain * math.Tanh(sum/r.cfg.MaxSumGain)
	default:
		return sum
	}
}

// HasInputs reports whether any committed connection feeds dst.
func (r *Router) HasInputs(dst int) bool {
	return len(r.resolved[dst]) > 0
}

// Connections returns the staged connection set in stable order, for
// serialization into a patch document.
func (r *Router) Connections() []Connection {
	out := make([]Connection, 0, len(r.staged))
	for key, color := range r.staged {
		out = append(out, Connection{Src: key.src, Dst: key.dst, Color: color})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dst < out[j].Dst
	})
	return out
}

// Clear stages removal of every connection.
func (r *Router) Clear() {
	for key := range r.staged {
		delete(r.staged, key)
	}
	r.dirty = true
}
