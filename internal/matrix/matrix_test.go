package matrix

import (
	"errors"
	"math"
	"testing"

	"github.com/mesjetiu/synthigme-go/internal/pins"
)

func testTable() *pins.Table {
	tbl := pins.NewTable()
	// 0, 1: audio outputs; 2: audio input; 3: control output; 4: control input
	tbl.Register(pins.Pin{ID: pins.ID{Module: "osc", Instance: 1, Port: "outA"}, Kind: pins.KindAudio, Dir: pins.DirOutput})
	tbl.Register(pins.Pin{ID: pins.ID{Module: "osc", Instance: 2, Port: "outA"}, Kind: pins.KindAudio, Dir: pins.DirOutput})
	tbl.Register(pins.Pin{ID: pins.ID{Module: "output", Instance: 1, Port: "in"}, Kind: pins.KindAudio, Dir: pins.DirInput})
	tbl.Register(pins.Pin{ID: pins.ID{Module: "output", Instance: 1, Port: "cvOut"}, Kind: pins.KindControl, Dir: pins.DirOutput})
	tbl.Register(pins.Pin{ID: pins.ID{Module: "osc", Instance: 1, Port: "freqCV"}, Kind: pins.KindControl, Dir: pins.DirInput})
	return tbl
}

func newAudioRouter(t *testing.T, cfg Config) *Router {
	t.Helper()
	r, err := NewRouter(pins.KindAudio, testTable(), cfg)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

func TestConfigValidation(t *testing.T) {
	bad := []Config{
		{MatrixGain: 0, MaxSumGain: 1, GainRange: GainRange{0, 10}},
		{MatrixGain: 1, MaxSumGain: 1, GainRange: GainRange{-1, 10}},
		{MatrixGain: 1, MaxSumGain: 0.5, GainRange: GainRange{0, 10}},
		{MatrixGain: 1, MaxSumGain: 1, GainRange: GainRange{5, 1}},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("case %d: config %+v should be invalid", i, cfg)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestKindMismatchRejected(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	if err := r.Connect(0, 4, pins.ColorWhite); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("audio->control connect err = %v, want ErrKindMismatch", err)
	}
	if err := r.Connect(3, 2, pins.ColorWhite); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("control->audio connect err = %v, want ErrKindMismatch", err)
	}
	if len(r.Connections()) != 0 {
		t.Error("rejected connection must leave the matrix unchanged")
	}
}

func TestUnknownPinAndDirectionRejected(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	if err := r.Connect(99, 2, pins.ColorWhite); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("unknown src err = %v", err)
	}
	if err := r.Connect(0, 99, pins.ColorWhite); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("unknown dst err = %v", err)
	}
	if err := r.Connect(2, 0, pins.ColorWhite); !errors.Is(err, ErrNotOutput) {
		t.Errorf("input-as-source err = %v", err)
	}
	if err := r.Connect(0, 1, pins.ColorWhite); !errors.Is(err, ErrNotInput) {
		t.Errorf("output-as-destination err = %v", err)
	}
}

func TestReservedColorRejected(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	if err := r.Connect(0, 2, pins.ColorOrange); !errors.Is(err, pins.ErrReservedColor) {
		t.Errorf("orange connect err = %v, want ErrReservedColor", err)
	}
	if err := r.Connect(0, 2, pins.Color(42)); !errors.Is(err, pins.ErrUnknownColor) {
		t.Errorf("unknown colour connect err = %v, want ErrUnknownColor", err)
	}
}

func TestRepatchReplacesColor(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	if err := r.Connect(0, 2, pins.ColorWhite); err != nil {
		t.Fatalf("connect white: %v", err)
	}
	if err := r.Connect(0, 2, pins.ColorGreen); err != nil {
		t.Fatalf("repatch green: %v", err)
	}
	conns := r.Connections()
	if len(conns) != 1 {
		t.Fatalf("matrix is a set, got %d connections", len(conns))
	}
	if conns[0].Color != pins.ColorGreen {
		t.Errorf("repatch should replace colour, got %v", conns[0].Color)
	}
}

func TestChangesInvisibleUntilCommit(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	read := func(int) float64 { return 1.0 }
	if err := r.Connect(0, 2, pins.ColorWhite); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got := r.Resolve(2, read); got != 0 {
		t.Errorf("uncommitted connection resolved to %v, want 0", got)
	}
	r.Commit()
	if got := r.Resolve(2, read); got == 0 {
		t.Error("committed connection should contribute")
	}
	r.Disconnect(0, 2)
	if got := r.Resolve(2, read); got == 0 {
		t.Error("disconnect must not take effect before Commit")
	}
	r.Commit()
	if got := r.Resolve(2, read); got != 0 {
		t.Errorf("after commit, resolve = %v, want 0", got)
	}
}

func TestResolveSumsWeightedSources(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumMode = SumDirect
	r := newAudioRouter(t, cfg)
	if err := r.Connect(0, 2, pins.ColorWhite); err != nil {
		t.Fatal(err)
	}
	if err := r.Connect(1, 2, pins.ColorGreen); err != nil {
		t.Fatal(err)
	}
	r.Commit()
	values := map[int]float64{0: 0.5, 1: 0.25}
	got := r.Resolve(2, func(src int) float64 { return values[src] })
	white, _ := pins.Gain(pins.ColorWhite, pins.ReferenceResistance)
	green, _ := pins.Gain(pins.ColorGreen, pins.ReferenceResistance)
	want := 0.5*white + 0.25*green
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestMatrixGainScalesSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumMode = SumDirect
	cfg.MatrixGain = 0.5
	r := newAudioRouter(t, cfg)
	if err := r.Connect(0, 2, pins.ColorWhite); err != nil {
		t.Fatal(err)
	}
	r.Commit()
	got := r.Resolve(2, func(int) float64 { return 1.0 })
	if math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Resolve with matrixGain 0.5 = %v, want 0.5", got)
	}
}

func TestSumModeClip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumMode = SumClip
	cfg.MaxSumGain = 2.0
	r := newAudioRouter(t, cfg)
	r.Connect(0, 2, pins.ColorRed) // gain ~37
	r.Commit()
	if got := r.Resolve(2, func(int) float64 { return 1.0 }); got != 2.0 {
		t.Errorf("clip resolve = %v, want 2.0", got)
	}
	if got := r.Resolve(2, func(int) float64 { return -1.0 }); got != -2.0 {
		t.Errorf("clip resolve = %v, want -2.0", got)
	}
}

func TestSumModeSoftClipApproachesCeiling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SumMode = SumSoftClip
	cfg.MaxSumGain = 2.0
	r := newAudioRouter(t, cfg)
	r.Connect(0, 2, pins.ColorRed)
	r.Commit()
	big := r.Resolve(2, func(int) float64 { return 1.0 })
	if big >= 2.0 {
		t.Errorf("soft clip must never reach the ceiling, got %v", big)
	}
	if big < 1.9 {
		t.Errorf("soft clip should approach the ceiling for large sums, got %v", big)
	}
	// Small sums pass nearly untouched.
	small := r.Resolve(2, func(int) float64 { return 0.001 })
	white37 := 0.001 * 37.037037037037035
	if math.Abs(small-white37)/white37 > 0.01 {
		t.Errorf("soft clip distorts small sums: got %v, want ~%v", small, white37)
	}
}

func TestUnpatchedDestinationIsSilent(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	r.Commit()
	if got := r.Resolve(2, func(int) float64 { return 1.0 }); got != 0 {
		t.Errorf("unpatched destination = %v, want 0", got)
	}
	if r.HasInputs(2) {
		t.Error("HasInputs(2) should be false")
	}
}

func TestClear(t *testing.T) {
	r := newAudioRouter(t, DefaultConfig())
	r.Connect(0, 2, pins.ColorWhite)
	r.Connect(1, 2, pins.ColorGrey)
	r.Clear()
	r.Commit()
	if len(r.Connections()) != 0 {
		t.Error("Clear should stage removal of all connections")
	}
	if got := r.Resolve(2, func(int) float64 { return 1.0 }); got != 0 {
		t.Errorf("resolve after clear = %v, want 0", got)
	}
}
