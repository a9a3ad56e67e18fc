package synthigme

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mesjetiu/synthigme-go/internal/patch"
	"github.com/mesjetiu/synthigme-go/internal/pins"
	"github.com/mesjetiu/synthigme-go/internal/units"
)

type oscState struct {
	knobs [numOscKnobs]float64
	rng   units.Range
}

// engineState is a complete, self-contained snapshot of every panel
// setting and matrix connection. The control side keeps one as its
// mirror; patch loads hand a fresh one to the audio side through an
// atomic pointer.
type engineState struct {
	name         string
	osc          []oscState
	noiseColour  []float64
	noiseLevel   []float64
	outLevel     []float64
	outOn        []bool
	audioConns   []patch.Connection
	controlConns []patch.Connection
	routing      json.RawMessage
	gen          uint64
}

func defaultState(p Params) *engineState {
	st := &engineState{
		name:        "default",
		osc:         make([]oscState, p.Oscillators),
		noiseColour: make([]float64, p.NoiseSources),
		noiseLevel:  make([]float64, p.NoiseSources),
		outLevel:    make([]float64, p.OutputChannels),
		outOn:       make([]bool, p.OutputChannels),
	}
	for i := range st.osc {
		st.osc[i] = oscState{
			knobs: [numOscKnobs]float64{5, 0, 5, 10, 5, 0, 0},
			rng:   units.RangeHi,
		}
	}
	for i := range st.noiseColour {
		st.noiseColour[i] = 0
		st.noiseLevel[i] = 1
	}
	for i := range st.outLevel {
		st.outLevel[i] = 10
		st.outOn[i] = true
	}
	return st
}

func (s *engineState) clone() *engineState {
	c := &engineState{
		name:         s.name,
		osc:          append([]oscState(nil), s.osc...),
		noiseColour:  append([]float64(nil), s.noiseColour...),
		noiseLevel:   append([]float64(nil), s.noiseLevel...),
		outLevel:     append([]float64(nil), s.outLevel...),
		outOn:        append([]bool(nil), s.outOn...),
		audioConns:   append([]patch.Connection(nil), s.audioConns...),
		controlConns: append([]patch.Connection(nil), s.controlConns...),
		routing:      append(json.RawMessage(nil), s.routing...),
		gen:          s.gen,
	}
	return c
}

func (s *engineState) conns(kind pins.Kind) *[]patch.Connection {
	if kind == pins.KindControl {
		return &s.controlConns
	}
	return &s.audioConns
}

func (s *engineState) setConnection(kind pins.Kind, c patch.Connection) {
	list := s.conns(kind)
	for i := range *list {
		if (*list)[i].Src == c.Src && (*list)[i].Dst == c.Dst {
			(*list)[i].Color = c.Color
			return
		}
	}
	*list = append(*list, c)
}

func (s *engineState) removeConnection(kind pins.Kind, src, dst string) {
	list := s.conns(kind)
	for i := range *list {
		if (*list)[i].Src == src && (*list)[i].Dst == dst {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (s *engineState) clearConnections(kind pins.Kind) {
	*s.conns(kind) = nil
}

// stateFromDocument converts a validated document into an engine state,
// checking every referenced pin against this engine's topology.
func (e *Engine) stateFromDocument(doc *patch.Document) (*engineState, error) {
	st := defaultState(e.params)
	st.name = doc.Name

	for kind, group := range doc.Modules {
		for id, values := range group {
			name := kind + id
			idx, err := strconv.Atoi(id)
			if err != nil || idx < 1 {
				return nil, fmt.Errorf("malformed %s instance id %q", kind, id)
			}
			switch kind {
			case "osc":
				if idx > len(st.osc) {
					return nil, fmt.Errorf("%s exceeds engine topology (%d oscillators)", name, len(st.osc))
				}
				if err := overlayOsc(&st.osc[idx-1], values); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			case "noise":
				if idx > len(st.noiseColour) {
					return nil, fmt.Errorf("%s exceeds engine topology (%d noise sources)", name, len(st.noiseColour))
				}
				if v, ok := number(values, "colour"); ok {
					st.noiseColour[idx-1] = v
				}
				if v, ok := number(values, "level"); ok {
					st.noiseLevel[idx-1] = v
				}
			case "output":
				if idx > len(st.outLevel) {
					return nil, fmt.Errorf("%s exceeds engine topology (%d output channels)", name, len(st.outLevel))
				}
				if v, ok := number(values, "level"); ok {
					st.outLevel[idx-1] = v
				}
				if v, ok := values["on"].(string); ok {
					st.outOn[idx-1] = v == "on"
				}
			default:
				return nil, fmt.Errorf("unknown module kind %q", kind)
			}
		}
	}
	st.routing = append(json.RawMessage(nil), doc.Routing...)

	if err := e.checkConnections(pins.KindAudio, doc.Matrix.Audio); err != nil {
		return nil, err
	}
	if err := e.checkConnections(pins.KindControl, doc.Matrix.Control); err != nil {
		return nil, err
	}
	st.audioConns = append([]patch.Connection(nil), doc.Matrix.Audio...)
	st.controlConns = append([]patch.Connection(nil), doc.Matrix.Control...)
	return st, nil
}

func (e *Engine) checkConnections(kind pins.Kind, conns []patch.Connection) error {
	for _, c := range conns {
		srcIdx, err := e.lookupPin(kind, c.Src)
		if err != nil {
			return err
		}
		dstIdx, err := e.lookupPin(kind, c.Dst)
		if err != nil {
			return err
		}
		color, err := pins.ParseColor(c.Color)
		if err != nil {
			return err
		}
		if err := e.router(kind).Check(srcIdx, dstIdx, color); err != nil {
			return fmt.Errorf("%s -> %s: %w", c.Src, c.Dst, err)
		}
	}
	return nil
}

func number(values patch.ModuleValues, key string) (float64, bool) {
	v, ok := values[key].(float64)
	return v, ok
}

func overlayOsc(o *oscState, values patch.ModuleValues) error {
	if raw, present := values["knobs"]; present {
		arr, ok := raw.([]any)
		if !ok || len(arr) != numOscKnobs {
			return fmt.Errorf("knobs must be %d numbers", numOscKnobs)
		}
		for i, el := range arr {
			n, ok := el.(float64)
			if !ok {
				return fmt.Errorf("knob %d is not a number", i)
			}
			o.knobs[i] = n
		}
	}
	if raw, present := values["rangeState"]; present {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("rangeState must be a string")
		}
		if s == "lo" {
			o.rng = units.RangeLo
		} else {
			o.rng = units.RangeHi
		}
	}
	return nil
}

// document renders the state back into a patch document at the current
// format version.
func (s *engineState) document() *patch.Document {
	doc := patch.EmptyDocument()
	doc.Name = s.name
	for i, o := range s.osc {
		knobs := make([]any, numOscKnobs)
		for k := range o.knobs {
			knobs[k] = o.knobs[k]
		}
		doc.SetModule("osc", i+1, patch.ModuleValues{
			"knobs":      knobs,
			"rangeState": o.rng.String(),
		})
	}
	for i := range s.noiseColour {
		doc.SetModule("noise", i+1, patch.ModuleValues{
			"colour": s.noiseColour[i],
			"level":  s.noiseLevel[i],
		})
	}
	for i := range s.outLevel {
		on := "on"
		if !s.outOn[i] {
			on = "off"
		}
		doc.SetModule("output", i+1, patch.ModuleValues{
			"level": s.outLevel[i],
			"on":    on,
		})
	}
	doc.Matrix.Audio = append(doc.Matrix.Audio, s.audioConns...)
	doc.Matrix.Control = append(doc.Matrix.Control, s.controlConns...)
	doc.Routing = append(json.RawMessage(nil), s.routing...)
	return doc
}
