package pins

import (
	"errors"
	"math"
	"testing"
)

func TestResistancePositiveForAllColors(t *testing.T) {
	for c := Color(0); c < numColors; c++ {
		r, err := Resistance(c)
		if err != nil {
			t.Fatalf("Resistance(%v): %v", c, err)
		}
		if r <= 0 {
			t.Errorf("Resistance(%v) = %v, want > 0", c, r)
		}
	}
}

func TestResistanceTable(t *testing.T) {
	cases := []struct {
		color Color
		ohms  float64
	}{
		{ColorWhite, 100_000},
		{ColorGrey, 100_000},
		{ColorGreen, 68_000},
		{ColorRed, 2_700},
	}
	for _, tc := range cases {
		r, err := Resistance(tc.color)
		if err != nil {
			t.Fatalf("Resistance(%v): %v", tc.color, err)
		}
		if r != tc.ohms {
			t.Errorf("Resistance(%v) = %v, want %v", tc.color, r, tc.ohms)
		}
	}
}

func TestUnknownColorIsHardError(t *testing.T) {
	if _, err := Resistance(Color(99)); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("Resistance(99) err = %v, want ErrUnknownColor", err)
	}
	if _, err := Gain(Color(-1), ReferenceResistance); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("Gain(-1) err = %v, want ErrUnknownColor", err)
	}
	if _, err := ParseColor("mauve"); !errors.Is(err, ErrUnknownColor) {
		t.Errorf("ParseColor err = %v, want ErrUnknownColor", err)
	}
}

func TestExactlyFourSelectableColors(t *testing.T) {
	sel := SelectableColors()
	if len(sel) != 4 {
		t.Fatalf("selectable set has %d colors, want 4", len(sel))
	}
	for _, c := range sel {
		if !c.Selectable() {
			t.Errorf("%v reported not selectable", c)
		}
		if c == ColorOrange {
			t.Error("ORANGE must not be selectable")
		}
	}
	if ColorOrange.Selectable() {
		t.Error("ORANGE must be excluded from the selectable set")
	}
}

func TestGainOrdering(t *testing.T) {
	// Lower resistance means a higher gain contribution.
	white, _ := Gain(ColorWhite, ReferenceResistance)
	green, _ := Gain(ColorGreen, ReferenceResistance)
	red, _ := Gain(ColorRed, ReferenceResistance)
	if math.Abs(white-1.0) > 1e-12 {
		t.Errorf("white gain = %v, want 1.0", white)
	}
	if !(red > green && green > white) {
		t.Errorf("gain ordering violated: red=%v green=%v white=%v", red, green, white)
	}
}

func TestParseColorRoundTrip(t *testing.T) {
	for c := Color(0); c < numColors; c++ {
		got, err := ParseColor(c.String())
		if err != nil {
			t.Fatalf("ParseColor(%q): %v", c.String(), err)
		}
		if got != c {
			t.Errorf("ParseColor(%q) = %v, want %v", c.String(), got, c)
		}
	}
}

func TestTableLookup(t *testing.T) {
	tbl := NewTable()
	idx := tbl.Register(Pin{ID: ID{Module: "osc", Instance: 1, Port: "outA"}, Kind: KindAudio, Dir: DirOutput})
	p, ok := tbl.Lookup(idx)
	if !ok || p.ID.Module != "osc" {
		t.Fatalf("Lookup(%d) = %+v, %v", idx, p, ok)
	}
	if _, ok := tbl.Lookup(idx + 1); ok {
		t.Error("Lookup past end should fail")
	}
	if _, ok := tbl.Lookup(-1); ok {
		t.Error("Lookup(-1) should fail")
	}
}
