// Package patch defines the persisted patch document: module settings
// plus the two matrix connection lists, serialized as JSON.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// SupportedFormatVersion is the newest document format this build
// reads and writes. Older versions load; newer versions are refused.
const SupportedFormatVersion = 2

// ErrFormatTooNew marks a document written by a newer build.
var ErrFormatTooNew = errors.New("patch format newer than supported")

// Connection is one matrix patch point. It serializes as a compact
// three-element array ["src", "dst", "colour"] to keep hand-edited
// patch files readable.
type Connection struct {
	Src   string
	Dst   string
	Color string
}

func (c Connection) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]string{c.Src, c.Dst, c.Color})
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("connection must be a [src, dst, colour] triple: %w", err)
	}
	if len(arr) != 3 {
		return fmt.Errorf("connection must be a [src, dst, colour] triple, got %d elements", len(arr))
	}
	c.Src, c.Dst, c.Color = arr[0], arr[1], arr[2]
	return nil
}

// MatrixState holds the connection lists for both signal domains.
type MatrixState struct {
	Audio   []Connection `json:"audio"`
	Control []Connection `json:"control"`
}

// ModuleValues maps a module's field names to their stored values:
// numbers, strings or arrays of numbers, as the schema dictates.
type ModuleValues map[string]any

// ModuleGroup holds every instance of one module kind, keyed by its
// 1-based id as a decimal string.
type ModuleGroup map[string]ModuleValues

// Document is a full patch file. The routing section belongs to the
// outer I/O layer; it is carried opaquely and round-trips untouched.
type Document struct {
	FormatVersion int                    `json:"formatVersion"`
	Name          string                 `json:"name,omitempty"`
	SavedAt       string                 `json:"savedAt,omitempty"`
	Modules       map[string]ModuleGroup `json:"modules"`
	Matrix        MatrixState            `json:"matrix"`
	Routing       json.RawMessage        `json:"routing,omitempty"`
}

// Module fetches one instance's stored values, e.g. ("osc", 3).
func (d *Document) Module(kind string, id int) (ModuleValues, bool) {
	mv, ok := d.Modules[kind][strconv.Itoa(id)]
	return mv, ok
}

// SetModule stores one instance's values, creating the kind group as
// needed.
func (d *Document) SetModule(kind string, id int, values ModuleValues) {
	group, ok := d.Modules[kind]
	if !ok {
		group = ModuleGroup{}
		d.Modules[kind] = group
	}
	group[strconv.Itoa(id)] = values
}

// EmptyDocument is a current-version document with no modules patched.
func EmptyDocument() *Document {
	return &Document{
		FormatVersion: SupportedFormatVersion,
		Name:          "untitled",
		Modules:       map[string]ModuleGroup{},
		Matrix: MatrixState{
			Audio:   []Connection{},
			Control: []Connection{},
		},
	}
}

// DefaultDocument returns a document holding every module at its panel
// default with an empty matrix.
func DefaultDocument() *Document {
	doc := EmptyDocument()
	doc.Name = "default"
	for name, schema := range ModuleSchemas() {
		for i := 1; i <= schema.Instances; i++ {
			doc.SetModule(name, i, schema.Defaults())
		}
	}
	return doc
}

// Encode serializes the document as indented JSON. Map keys sort, so
// encoding is deterministic: encode-parse-encode is byte identical.
func Encode(doc *Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Parse decodes a document and enforces the format version. Documents
// older than the current version are accepted as written; newer ones
// fail with ErrFormatTooNew. Absent sections stay nil so Validate can
// flag them.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	if doc.FormatVersion > SupportedFormatVersion {
		return nil, fmt.Errorf("%w: document version %d, supported %d",
			ErrFormatTooNew, doc.FormatVersion, SupportedFormatVersion)
	}
	return &doc, nil
}
