// Package circuit is the in-memory circuit database: technologies, libraries,
// cells, node and arc instances, exports, connectivity and hierarchy
// traversal. All mutation goes through an Editor applying a ChangeSet.
package circuit

import (
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// Characteristic is the direction of an export or port.
type Characteristic int

const (
	CharUnknown Characteristic = iota
	CharInput
	CharOutput
	CharBidir
)

func (c Characteristic) String() string {
	switch c {
	case CharInput:
		return "input"
	case CharOutput:
		return "output"
	case CharBidir:
		return "inout"
	default:
		return "unknown"
	}
}

// ParseCharacteristic maps a direction keyword to a Characteristic.
func ParseCharacteristic(s string) Characteristic {
	switch strings.ToLower(s) {
	case "input", "in":
		return CharInput
	case "output", "out":
		return CharOutput
	case "inout", "bidir", "bidirectional":
		return CharBidir
	default:
		return CharUnknown
	}
}

// NodeProto is a node prototype: a primitive or a cell.
type NodeProto interface {
	ProtoName() string
	IsCell() bool
	DefaultSize() (float64, float64)
	PortProtos() []PortProto
	FindPortProto(name string) PortProto
}

// PortProto is a port prototype: a primitive port or an export.
type PortProto interface {
	PortName() string
	ParentProto() NodeProto
	PortCharacteristic() Characteristic
	CanConnect(ap *ArcProto) bool
	// BasePort follows exports down to the primitive port they expose.
	BasePort() *PrimitivePort
}

// Object is anything that lives in a cell.
type Object interface {
	Parent() *Cell
	IsLinked() bool
	Describe() string
}

// Geometric is an Object with a position: a node or an arc.
type Geometric interface {
	Object
	ID() int
	Bounds() geom.Rect
}
