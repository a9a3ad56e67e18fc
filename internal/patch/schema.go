package patch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mesjetiu/synthigme-go/internal/pins"
)

// FieldType classifies a schema field's JSON shape.
type FieldType int

const (
	FieldNumber FieldType = iota
	FieldNumberArray
	FieldEnum
)

// Field describes one module setting: its JSON type, numeric range
// (for numbers and array elements), fixed length (for arrays) and
// accepted options (for enums).
type Field struct {
	Name    string
	Type    FieldType
	Min     float64
	Max     float64
	Length  int
	Options []string
	Default any
}

// Schema describes one module kind and how many instances the panel
// carries.
type Schema struct {
	Name      string
	Instances int
	Fields    []Field
}

// Defaults builds the module's default value map.
func (s Schema) Defaults() ModuleValues {
	mv := make(ModuleValues, len(s.Fields))
	for _, f := range s.Fields {
		mv[f.Name] = f.Default
	}
	return mv
}

// Oscillator panel knob order. The knobs field stores dial positions
// 0-10 in this order.
var OscKnobNames = [7]string{
	"frequency",
	"pulseLevel",
	"pulseWidth",
	"sineLevel",
	"sineSymmetry",
	"triangleLevel",
	"sawLevel",
}

// ModuleSchemas returns the panel inventory keyed by module kind. A
// document groups instances under the kind, keyed by 1-based id.
func ModuleSchemas() map[string]Schema {
	return map[string]Schema{
		"osc": {
			Name:      "osc",
			Instances: 12,
			Fields: []Field{
				{Name: "knobs", Type: FieldNumberArray, Min: 0, Max: 10, Length: len(OscKnobNames),
					Default: []any{5.0, 0.0, 5.0, 10.0, 5.0, 0.0, 0.0}},
				{Name: "rangeState", Type: FieldEnum, Options: []string{"hi", "lo"}, Default: "hi"},
			},
		},
		"noise": {
			Name:      "noise",
			Instances: 2,
			Fields: []Field{
				{Name: "colour", Type: FieldNumber, Min: 0, Max: 1, Default: 0.0},
				{Name: "level", Type: FieldNumber, Min: 0, Max: 1, Default: 1.0},
			},
		},
		"output": {
			Name:      "output",
			Instances: 8,
			Fields: []Field{
				{Name: "level", Type: FieldNumber, Min: 0, Max: 10, Default: 10.0},
				{Name: "on", Type: FieldEnum, Options: []string{"on", "off"}, Default: "on"},
			},
		},
	}
}

// ValidationError pinpoints one invalid entry in a document.
type ValidationError struct {
	Module  string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	switch {
	case e.Module == "":
		return e.Message
	case e.Field == "":
		return fmt.Sprintf("%s: %s", e.Module, e.Message)
	default:
		return fmt.Sprintf("%s.%s: %s", e.Module, e.Field, e.Message)
	}
}

// Validate checks a document against the module schemas and the matrix
// colour vocabulary. It reports every problem found rather than
// stopping at the first, and never panics on malformed values. Missing
// fields are legal; the defaults apply.
func Validate(doc *Document) (bool, []ValidationError) {
	var errs []ValidationError
	add := func(module, field, format string, args ...any) {
		errs = append(errs, ValidationError{
			Module:  module,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if doc == nil {
		add("", "", "document is nil")
		return false, errs
	}
	if doc.FormatVersion < 1 {
		add("formatVersion", "", "missing or not a positive integer")
	} else if doc.FormatVersion > SupportedFormatVersion {
		add("formatVersion", "", "version %d newer than supported %d",
			doc.FormatVersion, SupportedFormatVersion)
	}
	if doc.Name == "" {
		add("name", "", "missing")
	}
	if doc.Modules == nil {
		add("modules", "", "section missing")
	}
	if doc.Matrix.Audio == nil && doc.Matrix.Control == nil {
		add("matrix", "", "section missing")
	}

	schemas := ModuleSchemas()
	for kind, group := range doc.Modules {
		schema, known := schemas[kind]
		if !known {
			add(kind, "", "unknown module kind %q", kind)
			continue
		}
		for id, values := range group {
			name := kind + id
			index, err := strconv.Atoi(id)
			if err != nil || index < 1 {
				add(name, "", "instance id %q must be a positive integer", id)
				continue
			}
			if index > schema.Instances {
				add(name, "", "instance %d outside 1..%d", index, schema.Instances)
				continue
			}
			validateModule(name, schema, values, add)
		}
	}

	validateConnections("matrix.audio", doc.Matrix.Audio, add)
	validateConnections("matrix.control", doc.Matrix.Control, add)

	return len(errs) == 0, errs
}

func validateModule(name string, schema Schema, values ModuleValues, add func(m, f, format string, args ...any)) {
	fields := make(map[string]Field, len(schema.Fields))
	for _, f := range schema.Fields {
		fields[f.Name] = f
	}
	for key, raw := range values {
		f, known := fields[key]
		if !known {
			add(name, key, "unknown field")
			continue
		}
		switch f.Type {
		case FieldNumber:
			n, ok := raw.(float64)
			if !ok {
				add(name, key, "expected a number, got %T", raw)
				continue
			}
			if n < f.Min || n > f.Max {
				add(name, key, "value %v outside [%v, %v]", n, f.Min, f.Max)
			}
		case FieldNumberArray:
			arr, ok := raw.([]any)
			if !ok {
				add(name, key, "expected an array, got %T", raw)
				continue
			}
			if len(arr) != f.Length {
				add(name, key, "expected %d elements, got %d", f.Length, len(arr))
				continue
			}
			for i, el := range arr {
				n, ok := el.(float64)
				if !ok {
					add(name, key, "element %d: expected a number, got %T", i, el)
					continue
				}
				if n < f.Min || n > f.Max {
					add(name, key, "element %d: value %v outside [%v, %v]", i, n, f.Min, f.Max)
				}
			}
		case FieldEnum:
			s, ok := raw.(string)
			if !ok {
				add(name, key, "expected a string, got %T", raw)
				continue
			}
			valid := false
			for _, opt := range f.Options {
				if s == opt {
					valid = true
					break
				}
			}
			if !valid {
				add(name, key, "value %q not one of %s", s, strings.Join(f.Options, "|"))
			}
		}
	}
}

func validateConnections(section string, conns []Connection, add func(m, f, format string, args ...any)) {
	for i, c := range conns {
		where := fmt.Sprintf("%s[%d]", section, i)
		if c.Src == "" || c.Dst == "" {
			add(where, "", "source and destination must be named")
			continue
		}
		colour, err := pins.ParseColor(c.Color)
		if err != nil {
			add(where, "", "colour %q unknown", c.Color)
			continue
		}
		if !colour.Selectable() {
			add(where, "", "colour %q is reserved", c.Color)
		}
	}
}
