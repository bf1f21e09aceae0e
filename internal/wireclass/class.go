// Package wireclass defines the two enumerations every other package keys
// off of: the traffic Class ordinal (which also fixes wire packing order)
// and the DataType tag (which fixes per-element byte width). Centralizing
// both here means a new class or type is a one-line addition everywhere
// else.
package wireclass

import "fmt"

// Class is a traffic class ordinal. Ordinal order is semantically
// meaningful: it is the order class runs appear in every emitted frame.
type Class uint8

const (
	ClassA Class = iota // first periodic class
	ClassB              // second periodic class
	ClassC              // third periodic class
	ClassRandom         // aperiodic/burst class
	numClasses
)

// NumClasses is the fixed number of traffic classes (three periodic, one
// aperiodic). Changing this is a wire-compatibility break.
const NumClasses = int(numClasses)

// String renders a human-readable class name for logs and the control
// surface.
func (c Class) String() string {
	switch c {
	case ClassA:
		return "A"
	case ClassB:
		return "B"
	case ClassC:
		return "C"
	case ClassRandom:
		return "random"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the defined class ordinals.
func (c Class) Valid() bool {
	return c < numClasses
}

// DataType tags the fixed-width element type carried by a class at a
// given moment. The width table below is the single place new types are
// added.
type DataType uint8

const (
	DataTypeI8 DataType = iota
	DataTypeI16
	DataTypeI32
	DataTypeF32
	DataTypeF64
	numDataTypes
)

// DataTypeDouble is the highest-ordinal valid type tag; the frame parser
// rejects anything beyond it.
const DataTypeDouble = DataTypeF64

var widths = [...]int{
	DataTypeI8:  1,
	DataTypeI16: 2,
	DataTypeI32: 4,
	DataTypeF32: 4,
	DataTypeF64: 8,
}

// Width returns the wire byte width of one element of type t. It panics if
// t is not a valid tag; callers on the decode path must validate with
// Valid() first, since a malformed frame can carry an arbitrary byte.
func (t DataType) Width() int {
	if !t.Valid() {
		panic(fmt.Sprintf("wireclass: invalid data type tag %d", uint8(t)))
	}
	return widths[t]
}

// Valid reports whether t is a known data type ordinal.
func (t DataType) Valid() bool {
	return t < numDataTypes
}

func (t DataType) String() string {
	switch t {
	case DataTypeI8:
		return "i8"
	case DataTypeI16:
		return "i16"
	case DataTypeI32:
		return "i32"
	case DataTypeF32:
		return "f32"
	case DataTypeF64:
		return "f64"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(t))
	}
}

// ParseDataType maps a control-surface string to a DataType tag. Used by
// the "type class datatype" command.
func ParseDataType(s string) (DataType, bool) {
	switch s {
	case "i8":
		return DataTypeI8, true
	case "i16":
		return DataTypeI16, true
	case "i32":
		return DataTypeI32, true
	case "f32":
		return DataTypeF32, true
	case "f64":
		return DataTypeF64, true
	default:
		return 0, false
	}
}
