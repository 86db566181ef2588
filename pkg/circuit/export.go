package circuit

// Export makes a port of an inner node visible as a port of the cell.
type Export struct {
	name           string
	parent         *Cell
	original       *PortInst
	characteristic Characteristic
	nameText       TextDescriptor
	linked         bool
}

// Name returns the export name.
func (e *Export) Name() string { return e.name }

// Original returns the exposed port instance.
func (e *Export) Original() *PortInst { return e.original }

// Parent implements Object.
func (e *Export) Parent() *Cell { return e.parent }

// IsLinked implements Object.
func (e *Export) IsLinked() bool {
	if e.parent == nil {
		return false
	}
	e.parent.mu.RLock()
	defer e.parent.mu.RUnlock()
	return e.linked && e.parent.linked
}

// Describe implements Object.
func (e *Export) Describe() string { return e.name }

func (e *Export) String() string { return e.name }

// PortName implements PortProto.
func (e *Export) PortName() string { return e.name }

// ParentProto implements PortProto.
func (e *Export) ParentProto() NodeProto { return e.parent }

// PortCharacteristic implements PortProto.
func (e *Export) PortCharacteristic() Characteristic { return e.characteristic }

// CanConnect implements PortProto.
func (e *Export) CanConnect(ap *ArcProto) bool {
	return e.original.proto.CanConnect(ap)
}

// BasePort implements PortProto.
func (e *Export) BasePort() *PrimitivePort {
	return e.original.proto.BasePort()
}
