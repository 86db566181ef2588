// Package config holds the editing session settings and their YAML file
// form.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
)

var ErrInvalid = errors.New("config: invalid setting")

// Settings aggregates every session setting.
type Settings struct {
	Selection Selection `yaml:"selection"`
	Compiler  Compiler  `yaml:"compiler"`
	Alignment Alignment `yaml:"alignment"`
}

// TextVisibility switches each class of drawn text on or off for selection.
type TextVisibility struct {
	Cell       bool `yaml:"cell"`
	Node       bool `yaml:"node"`
	Annotation bool `yaml:"annotation"`
	Instance   bool `yaml:"instance"`
	Port       bool `yaml:"port"`
	Export     bool `yaml:"export"`
	Arc        bool `yaml:"arc"`
}

// Shows reports whether text of the given kind can be selected.
func (tv TextVisibility) Shows(kind circuit.TextKind) bool {
	switch kind {
	case circuit.TextCell:
		return tv.Cell
	case circuit.TextNode:
		return tv.Node
	case circuit.TextAnnotation:
		return tv.Annotation
	case circuit.TextInstance:
		return tv.Instance
	case circuit.TextPort:
		return tv.Port
	case circuit.TextExport:
		return tv.Export
	case circuit.TextArc:
		return tv.Arc
	}
	return false
}

// Selection controls click and area selection.
type Selection struct {
	AreaMustEnclose bool           `yaml:"area_must_enclose"` // Area select needs full enclosure (default: false)
	SlopPixels      float64        `yaml:"slop_pixels"`       // Click tolerance in screen pixels (default: 5)
	EasyInstances   bool           `yaml:"easy_instances"`    // Cell instances selectable without hard-to-find (default: true)
	Text            TextVisibility `yaml:"text"`
}

// Corner names a corner of a bounding box.
type Corner string

const (
	UpperRight Corner = "upper-right"
	UpperLeft  Corner = "upper-left"
	LowerRight Corner = "lower-right"
	LowerLeft  Corner = "lower-left"
)

// Compiler controls Verilog compilation and cell generation.
type Compiler struct {
	Layout          bool    `yaml:"layout"`           // Build layout cells instead of schematics (default: false)
	IconCorner      Corner  `yaml:"icon_corner"`      // Where the icon goes next to a schematic (default: upper-right)
	IconOffset      float64 `yaml:"icon_offset"`      // Gap between schematic bounds and icon (default: 10)
	SearchLibraries bool    `yaml:"search_libraries"` // Use existing cells for undefined modules (default: true)
	MaxErrors       int     `yaml:"max_errors"`       // Diagnostics kept before suppression (default: 30)
}

// PivotPolicy picks the point rotations turn about.
type PivotPolicy string

const (
	PivotOrigin PivotPolicy = "origin"
	PivotCenter PivotPolicy = "center"
)

// Alignment controls grid snapping and rotation.
type Alignment struct {
	Grid       float64     `yaml:"grid"`        // Snap spacing in database units (default: 1)
	AlignEdges bool        `yaml:"align_edges"` // Snap node edges instead of centers (default: false)
	Pivot      PivotPolicy `yaml:"pivot"`       // Rotation pivot (default: origin)
}

// Default returns settings with sensible defaults.
func Default() *Settings {
	return &Settings{
		Selection: Selection{
			AreaMustEnclose: false,
			SlopPixels:      5,
			EasyInstances:   true,
			Text: TextVisibility{
				Cell: true, Node: true, Annotation: true, Instance: true,
				Port: true, Export: true, Arc: true,
			},
		},
		Compiler: Compiler{
			Layout:          false,
			IconCorner:      UpperRight,
			IconOffset:      10,
			SearchLibraries: true,
			MaxErrors:       30,
		},
		Alignment: Alignment{
			Grid:       1,
			AlignEdges: false,
			Pivot:      PivotOrigin,
		},
	}
}

// Validate repairs out-of-range numbers and rejects unknown keywords.
func (s *Settings) Validate() error {
	if s.Selection.SlopPixels < 0 {
		s.Selection.SlopPixels = 0
	}
	if s.Compiler.MaxErrors < 1 {
		s.Compiler.MaxErrors = 30
	}
	if s.Compiler.IconOffset < 0 {
		s.Compiler.IconOffset = 0
	}
	if s.Alignment.Grid < 0 {
		return fmt.Errorf("%w: negative grid %g", ErrInvalid, s.Alignment.Grid)
	}

	switch s.Compiler.IconCorner {
	case UpperRight, UpperLeft, LowerRight, LowerLeft:
	case "":
		s.Compiler.IconCorner = UpperRight
	default:
		return fmt.Errorf("%w: icon corner %q", ErrInvalid, s.Compiler.IconCorner)
	}

	switch s.Alignment.Pivot {
	case PivotOrigin, PivotCenter:
	case "":
		s.Alignment.Pivot = PivotOrigin
	default:
		return fmt.Errorf("%w: pivot %q", ErrInvalid, s.Alignment.Pivot)
	}
	return nil
}

// Load reads settings from a YAML file. Fields missing from the file keep
// their defaults; a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings as YAML, creating the directory if needed.
func Save(path string, s *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
