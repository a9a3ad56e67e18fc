// Package pins models the patch-pin identity space and the historical
// pin-colour resistance table of the Synthi patch matrix. A pin colour
// selects a fixed series resistance; together with the summing stage's
// reference resistance it determines the gain a connection contributes.
package pins

import "fmt"

// Kind separates the audio-rate matrix from the control-rate matrix.
// Connections never cross kinds.
type Kind int

const (
	KindAudio Kind = iota
	KindControl
)

func (k Kind) String() string {
	switch k {
	case KindAudio:
		return "audio"
	case KindControl:
		return "control"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Direction marks a pin as a signal source or destination.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// Color is the closed set of patch-pin colours. ORANGE is a legacy
// high-gain pin kept for completeness; it is excluded from the
// user-selectable set.
type Color int

const (
	ColorWhite Color = iota
	ColorGrey
	ColorGreen
	ColorRed
	ColorOrange

	numColors
)

// ReferenceResistance is the summing stage feedback resistance in ohms.
// A white pin through it yields unity gain.
const ReferenceResistance = 100_000.0

var colorNames = [numColors]string{"white", "grey", "green", "red", "orange"}

var colorOhms = [numColors]float64{
	ColorWhite:  100_000,
	ColorGrey:   100_000,
	ColorGreen:  68_000,
	ColorRed:    2_700,
	ColorOrange: 10_000,
}

func (c Color) String() string {
	if c < 0 || c >= numColors {
		return fmt.Sprintf("Color(%d)", int(c))
	}
	return colorNames[c]
}

// ParseColor maps a serialized colour name back to its Color.
func ParseColor(name string) (Color, error) {
	for c, n := range colorNames {
		if n == name {
			return Color(c), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, name)
}

// Resistance returns the pin's series resistance in ohms. Unknown colours
// are a hard error: silently substituting a colour changes audible gain.
func Resistance(c Color) (float64, error) {
	if c < 0 || c >= numColors {
		return 0, fmt.Errorf("%w: %d", ErrUnknownColor, int(c))
	}
	return colorOhms[c], nil
}

// Gain returns the dimensionless gain of a connection made with colour c
// against the given reference resistance.
func Gain(c Color, reference float64) (float64, error) {
	r, err := Resistance(c)
	if err != nil {
		return 0, err
	}
	if reference <= 0 {
		return 0, fmt.Errorf("reference resistance must be positive, got %g", reference)
	}
	return reference / r, nil
}

// Selectable reports whether the colour may be chosen by a user patch
// action. ORANGE is reserved.
func (c Color) Selectable() bool {
	return c >= 0 && c < numColors && c != ColorOrange
}

// SelectableColors returns the user-selectable colour set in a stable order.
func SelectableColors() []Color {
	return []Color{ColorWhite, ColorGrey, ColorGreen, ColorRed}
}

// ID identifies a pin by its owning module and port. Pins are referenced
// by the matrix, never owned by it.
type ID struct {
	Module   string
	Instance int
	Port     string
}

func (id ID) String() string {
	return fmt.Sprintf("%s%d.%s", id.Module, id.Instance, id.Port)
}

// Pin is one audio or control connection point on a module. Param, when
// non-empty, names the unit parameter the pin is bound to.
type Pin struct {
	ID    ID
	Kind  Kind
	Dir   Direction
	Param string
}

// Table assigns stable integer indices to pins within one signal domain.
// Indices are what the matrix and the patch document refer to.
type Table struct {
	pins []Pin
}

func NewTable() *Table {
	return &Table{}
}

// Register appends a pin and returns its index.
func (t *Table) Register(p Pin) int {
	t.pins = append(t.pins, p)
	return len(t.pins) - 1
}

// Lookup returns the pin at index, or false when the index is out of range.
func (t *Table) Lookup(index int) (Pin, bool) {
	if index < 0 || index >= len(t.pins) {
		return Pin{}, false
	}
	return t.pins[index], true
}

func (t *Table) Len() int {
	return len(t.pins)
}
