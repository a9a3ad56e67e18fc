// Package synthigme implements the signal-routing and voice-generation
// core of a Synthi 100 style modular synthesizer: a bank of oscillators
// and noise sources patched through two resistor-weighted matrices into
// voltage-controlled output channels.
package synthigme

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mesjetiu/synthigme-go/internal/matrix"
	"github.com/mesjetiu/synthigme-go/internal/patch"
	"github.com/mesjetiu/synthigme-go/internal/pins"
	"github.com/mesjetiu/synthigme-go/internal/rt"
	"github.com/mesjetiu/synthigme-go/internal/units"
)

// Params holds the engine topology and calibration. The defaults mirror
// the reference panel: 12 oscillators, 2 noise sources and 8 output
// channels.
type Params struct {
	Oscillators    int
	NoiseSources   int
	OutputChannels int
	BlockSize      int
	MasterGain     float64
	CommandQueue   int
}

func DefaultParams() Params {
	return Params{
		Oscillators:    12,
		NoiseSources:   2,
		OutputChannels: 8,
		BlockSize:      units.DefaultBlockSize,
		MasterGain:     0.25,
		CommandQueue:   256,
	}
}

var ErrQueueFull = errors.New("command queue full")

// Diagnostic reports a contained render fault. Each unit reports at
// most once; the channel is buffered and never blocks the audio path.
type Diagnostic struct {
	Unit string
	Err  error
}

// Oscillator panel knob indices, in patch document order.
const (
	oscKnobFrequency = iota
	oscKnobPulseLevel
	oscKnobPulseWidth
	oscKnobSineLevel
	oscKnobSineSymmetry
	oscKnobTriangleLevel
	oscKnobSawLevel
	numOscKnobs
)

type commandOp uint8

const (
	opSetOscKnob commandOp = iota
	opSetOscRange
	opSetNoiseColour
	opSetNoiseLevel
	opSetOutputLevel
	opSetOutputOn
	opConnect
	opDisconnect
	opClearMatrix
	opResetBlockers
)

// command is the fixed-size message pushed through the SPSC ring. The
// control side fully validates before pushing; the audio side applies
// without further checks.
type command struct {
	op    commandOp
	kind  pins.Kind
	unit  int
	param int
	src   int
	dst   int
	color pins.Color
	value float64
	gen   uint64
}

// pitch CV conditioning ahead of the oscillator's exponential converter.
const (
	pitchSlewSec = 0.0002
)

// Engine renders the full patch at block rate. Process runs on the
// audio goroutine; every mutating public method runs on the control
// side and communicates through the command ring or an atomic pointer
// swap, never a lock shared with the audio path.
type Engine struct {
	sampleRate float64
	params     Params
	blockSize  int

	osc      []*units.Oscillator
	oscSlew  []*units.ThermalSlew
	cvShaper *units.SoftClip
	noise    []*units.Noise
	vca      []*units.VCA
	outBlock []*units.DCBlocker
	cvBlock  []*units.DCBlocker
	oscKnobs [][numOscKnobs]float64
	oscRange []units.Range
	chanOn   []bool

	audioPins     *pins.Table
	controlPins   *pins.Table
	audioRouter   *matrix.Router
	controlRouter *matrix.Router
	audioIndex    map[string]int
	controlIndex  map[string]int

	// Signal buffers, one per source pin, aliased into the per-domain
	// read tables. Destination slots stay nil.
	audioBuf    [][]float64
	controlBuf  [][]float64
	oscA        [][]float64
	oscB        [][]float64
	noiseBuf    [][]float64
	sendBuf     [][]float64
	cvSendBuf   [][]float64
	chanBuf     [][]float64
	mixL, mixR  []float64
	cvScratch   []float64
	syncScratch []float64
	inScratch   []float64

	oscSyncPin  []int
	oscFreqPin  []int
	outInPin    []int
	outLevelPin []int

	sampleIdx   int
	readAudio   func(src int) float64
	readControl func(src int) float64

	commands *rt.Ring[command]
	pending  atomic.Pointer[engineState]
	cursor   int

	// stateGen counts whole-patch swaps; commands stamped with an older
	// generation were queued before the swap and are superseded by it.
	stateGen   atomic.Uint64
	appliedGen uint64

	masterGain uint64

	nodeName []string
	nodeOuts [][][]float64
	faulted  []bool
	diag     chan Diagnostic

	mu     sync.Mutex
	mirror *engineState
}

// NewEngine builds an engine with the given topology. All matrices
// start empty: a fresh engine renders silence.
func NewEngine(sampleRate int, params Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if params.Oscillators <= 0 || params.NoiseSources <= 0 || params.OutputChannels <= 0 {
		return nil, errors.New("topology counts must be positive")
	}
	if params.BlockSize <= 0 {
		params.BlockSize = units.DefaultBlockSize
	}
	if params.CommandQueue <= 0 {
		params.CommandQueue = 256
	}

	fs := float64(sampleRate)
	n := params.BlockSize
	e := &Engine{
		sampleRate:   fs,
		params:       params,
		blockSize:    n,
		cvShaper:     units.NewSoftClip(),
		audioPins:    pins.NewTable(),
		controlPins:  pins.NewTable(),
		audioIndex:   map[string]int{},
		controlIndex: map[string]int{},
		commands:     rt.NewRing[command](params.CommandQueue),
		cursor:       n,
		masterGain:   math.Float64bits(params.MasterGain),
		diag:         make(chan Diagnostic, 8),
		mixL:         make([]float64, n),
		mixR:         make([]float64, n),
		cvScratch:    make([]float64, n),
		syncScratch:  make([]float64, n),
		inScratch:    make([]float64, n),
	}

	for i := 0; i < params.Oscillators; i++ {
		e.osc = append(e.osc, units.NewOscillator(fs))
		e.oscSlew = append(e.oscSlew, units.NewThermalSlew(fs, pitchSlewSec, pitchSlewSec))
		e.oscKnobs = append(e.oscKnobs, [numOscKnobs]float64{})
		e.oscRange = append(e.oscRange, units.RangeHi)
		e.oscA = append(e.oscA, make([]float64, n))
		e.oscB = append(e.oscB, make([]float64, n))
	}
	for i := 0; i < params.NoiseSources; i++ {
		e.noise = append(e.noise, units.NewNoise(fs, int64(i+1)))
		e.noiseBuf = append(e.noiseBuf, make([]float64, n))
	}
	for i := 0; i < params.OutputChannels; i++ {
		e.vca = append(e.vca, units.NewVCA(fs))
		e.outBlock = append(e.outBlock, units.NewOutputBlocker(fs))
		e.cvBlock = append(e.cvBlock, units.NewCVBlocker(fs))
		e.chanOn = append(e.chanOn, true)
		e.sendBuf = append(e.sendBuf, make([]float64, n))
		e.cvSendBuf = append(e.cvSendBuf, make([]float64, n))
		e.chanBuf = append(e.chanBuf, make([]float64, n))
	}

	e.registerPins()

	var err error
	e.audioRouter, err = matrix.NewRouter(pins.KindAudio, e.audioPins, matrix.DefaultConfig())
	if err != nil {
		return nil, err
	}
	// CV sums stay unlimited in the matrix; the explicit shaper on each
	// pitch path carries the saturation.
	controlCfg := matrix.DefaultConfig()
	controlCfg.SumMode = matrix.SumDirect
	e.controlRouter, err = matrix.NewRouter(pins.KindControl, e.controlPins, controlCfg)
	if err != nil {
		return nil, err
	}

	e.readAudio = func(src int) float64 { return e.audioBuf[src][e.sampleIdx] }
	e.readControl = func(src int) float64 { return e.controlBuf[src][e.sampleIdx] }

	e.mirror = defaultState(params)
	e.applyState(e.mirror.clone())
	return e, nil
}

func (e *Engine) registerPins() {
	regAudio := func(id pins.ID, dir pins.Direction, buf []float64) int {
		idx := e.audioPins.Register(pins.Pin{ID: id, Kind: pins.KindAudio, Dir: dir})
		e.audioIndex[id.String()] = idx
		e.audioBuf = append(e.audioBuf, buf)
		return idx
	}
	regControl := func(id pins.ID, dir pins.Direction, buf []float64) int {
		idx := e.controlPins.Register(pins.Pin{ID: id, Kind: pins.KindControl, Dir: dir})
		e.controlIndex[id.String()] = idx
		e.controlBuf = append(e.controlBuf, buf)
		return idx
	}

	for i := range e.osc {
		inst := i + 1
		regAudio(pins.ID{Module: "osc", Instance: inst, Port: "outA"}, pins.DirOutput, e.oscA[i])
		regAudio(pins.ID{Module: "osc", Instance: inst, Port: "outB"}, pins.DirOutput, e.oscB[i])
		e.oscSyncPin = append(e.oscSyncPin,
			regAudio(pins.ID{Module: "osc", Instance: inst, Port: "sync"}, pins.DirInput, nil))

		// Oscillator outputs double as control sources, reading the
		// same buffers the audio matrix sees.
		regControl(pins.ID{Module: "osc", Instance: inst, Port: "outA"}, pins.DirOutput, e.oscA[i])
		regControl(pins.ID{Module: "osc", Instance: inst, Port: "outB"}, pins.DirOutput, e.oscB[i])
		e.oscFreqPin = append(e.oscFreqPin,
			regControl(pins.ID{Module: "osc", Instance: inst, Port: "frequency"}, pins.DirInput, nil))
	}
	for i := range e.noise {
		inst := i + 1
		regAudio(pins.ID{Module: "noise", Instance: inst, Port: "out"}, pins.DirOutput, e.noiseBuf[i])
		regControl(pins.ID{Module: "noise", Instance: inst, Port: "out"}, pins.DirOutput, e.noiseBuf[i])
	}
	for i := range e.vca {
		inst := i + 1
		e.outInPin = append(e.outInPin,
			regAudio(pins.ID{Module: "output", Instance: inst, Port: "in"}, pins.DirInput, nil))
		regAudio(pins.ID{Module: "output", Instance: inst, Port: "send"}, pins.DirOutput, e.sendBuf[i])
		// The channel's post-VCA signal re-enters the control matrix
		// through the 0.01 Hz blocker.
		regControl(pins.ID{Module: "output", Instance: inst, Port: "cv"}, pins.DirOutput, e.cvSendBuf[i])
		e.outLevelPin = append(e.outLevelPin,
			regControl(pins.ID{Module: "output", Instance: inst, Port: "level"}, pins.DirInput, nil))
	}

	for i := range e.osc {
		e.nodeName = append(e.nodeName, fmt.Sprintf("osc%d", i+1))
		e.nodeOuts = append(e.nodeOuts, [][]float64{e.oscA[i], e.oscB[i]})
	}
	for i := range e.noise {
		e.nodeName = append(e.nodeName, fmt.Sprintf("noise%d", i+1))
		e.nodeOuts = append(e.nodeOuts, [][]float64{e.noiseBuf[i]})
	}
	for i := range e.vca {
		e.nodeName = append(e.nodeName, fmt.Sprintf("output%d", i+1))
		e.nodeOuts = append(e.nodeOuts, [][]float64{e.sendBuf[i], e.cvSendBuf[i], e.chanBuf[i]})
	}
	e.faulted = make([]bool, len(e.nodeName))
}

func (e *Engine) SampleRate() int { return int(e.sampleRate) }
func (e *Engine) BlockSize() int  { return e.blockSize }

// SetMasterGain sets the final output scalar. Lock-free; takes effect
// on the next frame.
func (e *Engine) SetMasterGain(gain float64) {
	if gain < 0 {
		gain = 0
	}
	atomic.StoreUint64(&e.masterGain, math.Float64bits(gain))
}

func (e *Engine) MasterGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&e.masterGain))
}

// Diagnostics returns the fault channel. Receive in a goroutine; when
// nobody listens, reports are dropped rather than blocking audio.
func (e *Engine) Diagnostics() <-chan Diagnostic {
	return e.diag
}

func (e *Engine) push(c command) error {
	c.gen = e.stateGen.Load()
	if !e.commands.Push(c) {
		return ErrQueueFull
	}
	return nil
}

func oscKnobIndex(name string) (int, bool) {
	for i, n := range patch.OscKnobNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// SetOscKnob positions one oscillator panel dial (0-10). The knob is
// named as in the patch document, e.g. "frequency" or "sineSymmetry".
func (e *Engine) SetOscKnob(osc int, knob string, dial float64) error {
	if osc < 1 || osc > len(e.osc) {
		return fmt.Errorf("oscillator %d outside 1..%d", osc, len(e.osc))
	}
	k, ok := oscKnobIndex(knob)
	if !ok {
		return fmt.Errorf("unknown oscillator knob %q", knob)
	}
	if dial < 0 || dial > 10 {
		return fmt.Errorf("dial %g outside 0..10", dial)
	}
	if err := e.push(command{op: opSetOscKnob, unit: osc - 1, param: k, value: dial}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.osc[osc-1].knobs[k] = dial
	e.mu.Unlock()
	return nil
}

// SetOscRange flips the oscillator's frequency span switch ("hi" or
// "lo"). The frequency knob keeps its position and re-maps.
func (e *Engine) SetOscRange(osc int, rangeName string) error {
	if osc < 1 || osc > len(e.osc) {
		return fmt.Errorf("oscillator %d outside 1..%d", osc, len(e.osc))
	}
	var r units.Range
	switch rangeName {
	case "hi":
		r = units.RangeHi
	case "lo":
		r = units.RangeLo
	default:
		return fmt.Errorf("unknown range %q", rangeName)
	}
	if err := e.push(command{op: opSetOscRange, unit: osc - 1, param: int(r)}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.osc[osc-1].rng = r
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetNoiseColour(src int, colour float64) error {
	if src < 1 || src > len(e.noise) {
		return fmt.Errorf("noise source %d outside 1..%d", src, len(e.noise))
	}
	if err := e.push(command{op: opSetNoiseColour, unit: src - 1, value: colour}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.noiseColour[src-1] = colour
	e.mu.Unlock()
	return nil
}

func (e *Engine) SetNoiseLevel(src int, level float64) error {
	if src < 1 || src > len(e.noise) {
		return fmt.Errorf("noise source %d outside 1..%d", src, len(e.noise))
	}
	if err := e.push(command{op: opSetNoiseLevel, unit: src - 1, value: level}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.noiseLevel[src-1] = level
	e.mu.Unlock()
	return nil
}

// SetOutputLevel positions an output channel's gain dial (0-10).
func (e *Engine) SetOutputLevel(ch int, dial float64) error {
	if ch < 1 || ch > len(e.vca) {
		return fmt.Errorf("output channel %d outside 1..%d", ch, len(e.vca))
	}
	if err := e.push(command{op: opSetOutputLevel, unit: ch - 1, value: dial}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.outLevel[ch-1] = dial
	e.mu.Unlock()
	return nil
}

// SetOutputOn mutes or unmutes an output channel's mix contribution.
// The channel keeps rendering so its matrix sends stay live.
func (e *Engine) SetOutputOn(ch int, on bool) error {
	if ch < 1 || ch > len(e.vca) {
		return fmt.Errorf("output channel %d outside 1..%d", ch, len(e.vca))
	}
	v := 0.0
	if on {
		v = 1
	}
	if err := e.push(command{op: opSetOutputOn, unit: ch - 1, value: v}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.outOn[ch-1] = on
	e.mu.Unlock()
	return nil
}

func parseDomain(domain string) (pins.Kind, error) {
	switch domain {
	case "audio":
		return pins.KindAudio, nil
	case "control":
		return pins.KindControl, nil
	default:
		return 0, fmt.Errorf("unknown matrix domain %q", domain)
	}
}

func (e *Engine) lookupPin(kind pins.Kind, name string) (int, error) {
	index := e.audioIndex
	if kind == pins.KindControl {
		index = e.controlIndex
	}
	idx, ok := index[name]
	if !ok {
		return 0, fmt.Errorf("unknown %s pin %q", kind, name)
	}
	return idx, nil
}

func (e *Engine) router(kind pins.Kind) *matrix.Router {
	if kind == pins.KindControl {
		return e.controlRouter
	}
	return e.audioRouter
}

// Connect patches src into dst with the given pin colour. The
// connection is validated here and becomes audible at the next block
// boundary. Re-patching an existing pair replaces its colour.
func (e *Engine) Connect(domain, src, dst, colour string) error {
	kind, err := parseDomain(domain)
	if err != nil {
		return err
	}
	srcIdx, err := e.lookupPin(kind, src)
	if err != nil {
		return err
	}
	dstIdx, err := e.lookupPin(kind, dst)
	if err != nil {
		return err
	}
	color, err := pins.ParseColor(colour)
	if err != nil {
		return err
	}
	if err := e.router(kind).Check(srcIdx, dstIdx, color); err != nil {
		return err
	}
	if err := e.push(command{op: opConnect, kind: kind, src: srcIdx, dst: dstIdx, color: color}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.setConnection(kind, patch.Connection{Src: src, Dst: dst, Color: colour})
	e.mu.Unlock()
	return nil
}

// Disconnect removes a patched pair; removing an absent pair is a no-op.
func (e *Engine) Disconnect(domain, src, dst string) error {
	kind, err := parseDomain(domain)
	if err != nil {
		return err
	}
	srcIdx, err := e.lookupPin(kind, src)
	if err != nil {
		return err
	}
	dstIdx, err := e.lookupPin(kind, dst)
	if err != nil {
		return err
	}
	if err := e.push(command{op: opDisconnect, kind: kind, src: srcIdx, dst: dstIdx}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.removeConnection(kind, src, dst)
	e.mu.Unlock()
	return nil
}

// ClearMatrix removes every connection in one domain.
func (e *Engine) ClearMatrix(domain string) error {
	kind, err := parseDomain(domain)
	if err != nil {
		return err
	}
	if err := e.push(command{op: opClearMatrix, kind: kind}); err != nil {
		return err
	}
	e.mu.Lock()
	e.mirror.clearConnections(kind)
	e.mu.Unlock()
	return nil
}

// ResetBlockers zeroes the state of every DC blocker, output stage and
// CV re-entry alike.
func (e *Engine) ResetBlockers() error {
	return e.push(command{op: opResetBlockers})
}

// LoadPatch validates the document and swaps it in atomically at the
// next block boundary. The whole patch takes effect at once: module
// settings, both matrices, and a state reset of phases and blockers.
func (e *Engine) LoadPatch(doc *patch.Document) error {
	if ok, verrs := patch.Validate(doc); !ok {
		joined := make([]error, len(verrs))
		for i, ve := range verrs {
			joined[i] = ve
		}
		return fmt.Errorf("invalid patch: %w", errors.Join(joined...))
	}
	st, err := e.stateFromDocument(doc)
	if err != nil {
		return err
	}
	st.gen = e.stateGen.Add(1)
	e.mu.Lock()
	e.mirror = st.clone()
	e.mu.Unlock()
	e.pending.Store(st)
	return nil
}

// SnapshotPatch captures the current settings and connections as a
// patch document, stamped with the capture time.
func (e *Engine) SnapshotPatch() *patch.Document {
	e.mu.Lock()
	doc := e.mirror.document()
	e.mu.Unlock()
	doc.SavedAt = time.Now().UTC().Format(time.RFC3339)
	return doc
}

// Process renders interleaved stereo frames. Odd output channels mix
// left, even channels mix right. Runs on the audio goroutine.
func (e *Engine) Process(dst []float32) {
	gain := e.MasterGain()
	frames := len(dst) / 2
	for f := 0; f < frames; f++ {
		if e.cursor >= e.blockSize {
			e.renderBlock()
			e.cursor = 0
		}
		dst[f*2] = float32(e.mixL[e.cursor] * gain)
		dst[f*2+1] = float32(e.mixR[e.cursor] * gain)
		e.cursor++
	}
}

func (e *Engine) renderBlock() {
	if st := e.pending.Swap(nil); st != nil {
		e.applyState(st)
		e.appliedGen = st.gen
	}
	for {
		cmd, ok := e.commands.Pop()
		if !ok {
			break
		}
		if cmd.gen < e.appliedGen {
			continue
		}
		e.apply(cmd)
	}
	e.audioRouter.Commit()
	e.controlRouter.Commit()

	n := e.blockSize
	node := 0
	for i := range e.osc {
		e.runNode(node, e.oscRender(i))
		node++
	}
	for i := range e.noise {
		e.runNode(node, e.noiseRender(i))
		node++
	}
	for i := range e.vca {
		e.runNode(node, e.channelRender(i))
		node++
	}

	for s := 0; s < n; s++ {
		var l, r float64
		for c := range e.chanBuf {
			if !e.chanOn[c] {
				continue
			}
			if c%2 == 0 {
				l += e.chanBuf[c][s]
			} else {
				r += e.chanBuf[c][s]
			}
		}
		e.mixL[s] = l
		e.mixR[s] = r
	}
}

func (e *Engine) oscRender(i int) func() {
	return func() {
		var cv []float64
		if e.controlRouter.HasInputs(e.oscFreqPin[i]) {
			e.resolveControl(e.oscFreqPin[i], e.cvScratch)
			slew := e.oscSlew[i]
			for s := range e.cvScratch {
				e.cvScratch[s] = slew.Step(e.cvScratch[s])
			}
			e.cvShaper.ProcessBlock(e.cvScratch, e.cvScratch)
			cv = e.cvScratch
		}
		var syncIn []float64
		if e.audioRouter.HasInputs(e.oscSyncPin[i]) {
			e.resolveAudio(e.oscSyncPin[i], e.syncScratch)
			syncIn = e.syncScratch
		}
		e.osc[i].ProcessBlock(cv, syncIn, e.oscA[i], e.oscB[i])
	}
}

func (e *Engine) noiseRender(i int) func() {
	return func() {
		e.noise[i].ProcessBlock(e.noiseBuf[i])
	}
}

func (e *Engine) channelRender(i int) func() {
	return func() {
		e.resolveAudio(e.outInPin[i], e.inScratch)
		var cv []float64
		if e.controlRouter.HasInputs(e.outLevelPin[i]) {
			e.resolveControl(e.outLevelPin[i], e.cvScratch)
			cv = e.cvScratch
		}
		e.vca[i].ProcessBlock(e.inScratch, cv, e.sendBuf[i])
		e.cvBlock[i].ProcessBlock(e.sendBuf[i], e.cvSendBuf[i])
		e.outBlock[i].ProcessBlock(e.sendBuf[i], e.chanBuf[i])
	}
}

// runNode executes one unit's render with fault containment: a panic
// inside a unit silences only that unit's outputs for the block and
// raises a single diagnostic, while the rest of the patch keeps
// sounding.
func (e *Engine) runNode(id int, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		for _, buf := range e.nodeOuts[id] {
			for j := range buf {
				buf[j] = 0
			}
		}
		if !e.faulted[id] {
			e.faulted[id] = true
			select {
			case e.diag <- Diagnostic{Unit: e.nodeName[id], Err: fmt.Errorf("render fault: %v", r)}:
			default:
			}
		}
	}()
	fn()
}

func (e *Engine) resolveAudio(dst int, out []float64) {
	for s := range out {
		e.sampleIdx = s
		out[s] = e.audioRouter.Resolve(dst, e.readAudio)
	}
}

func (e *Engine) resolveControl(dst int, out []float64) {
	for s := range out {
		e.sampleIdx = s
		out[s] = e.controlRouter.Resolve(dst, e.readControl)
	}
}

// apply runs on the audio goroutine between blocks.
func (e *Engine) apply(c command) {
	switch c.op {
	case opSetOscKnob:
		e.applyOscKnob(c.unit, c.param, c.value)
	case opSetOscRange:
		e.oscRange[c.unit] = units.Range(c.param)
		e.applyOscKnob(c.unit, oscKnobFrequency, e.oscKnobs[c.unit][oscKnobFrequency])
	case opSetNoiseColour:
		e.noise[c.unit].SetColour(c.value)
	case opSetNoiseLevel:
		e.noise[c.unit].SetLevel(c.value)
	case opSetOutputLevel:
		e.vca[c.unit].SetDial(c.value)
	case opSetOutputOn:
		e.chanOn[c.unit] = c.value != 0
	case opConnect:
		_ = e.router(c.kind).Connect(c.src, c.dst, c.color)
	case opDisconnect:
		e.router(c.kind).Disconnect(c.src, c.dst)
	case opClearMatrix:
		e.router(c.kind).Clear()
	case opResetBlockers:
		for i := range e.outBlock {
			e.outBlock[i].Reset()
			e.cvBlock[i].Reset()
		}
	}
}

func (e *Engine) applyOscKnob(i, knob int, dial float64) {
	e.oscKnobs[i][knob] = dial
	o := e.osc[i]
	v := dial / 10
	switch knob {
	case oscKnobFrequency:
		o.SetBaseFrequency(units.KnobToFrequency(v, e.oscRange[i]))
	case oscKnobPulseLevel:
		o.SetLevel(units.WavePulse, v)
	case oscKnobPulseWidth:
		o.SetPulseWidth(v)
	case oscKnobSineLevel:
		o.SetLevel(units.WaveSine, v)
	case oscKnobSineSymmetry:
		o.SetSymmetry(v)
	case oscKnobTriangleLevel:
		o.SetLevel(units.WaveTriangle, v)
	case oscKnobSawLevel:
		o.SetLevel(units.WaveSaw, v)
	}
}

// applyState installs a whole engine state at a block boundary: every
// dial, both matrices, and a clean slate for phases, smoothers and
// blocker state.
func (e *Engine) applyState(st *engineState) {
	for i := range e.osc {
		e.oscRange[i] = st.osc[i].rng
		for k := 0; k < numOscKnobs; k++ {
			e.applyOscKnob(i, k, st.osc[i].knobs[k])
		}
		e.osc[i].ResetPhase()
		e.oscSlew[i].Reset(0)
	}
	for i := range e.noise {
		e.noise[i].SetColour(st.noiseColour[i])
		e.noise[i].SetLevel(st.noiseLevel[i])
		e.noise[i].Reset()
	}
	for i := range e.vca {
		e.vca[i].SetDial(st.outLevel[i])
		e.chanOn[i] = st.outOn[i]
		e.outBlock[i].Reset()
		e.cvBlock[i].Reset()
	}

	e.audioRouter.Clear()
	e.controlRouter.Clear()
	e.stageConnections(pins.KindAudio, st.audioConns)
	e.stageConnections(pins.KindControl, st.controlConns)
}

func (e *Engine) stageConnections(kind pins.Kind, conns []patch.Connection) {
	r := e.router(kind)
	for _, c := range conns {
		srcIdx, err := e.lookupPin(kind, c.Src)
		if err != nil {
			continue
		}
		dstIdx, err := e.lookupPin(kind, c.Dst)
		if err != nil {
			continue
		}
		color, err := pins.ParseColor(c.Color)
		if err != nil {
			continue
		}
		_ = r.Connect(srcIdx, dstIdx, color)
	}
}
