// types.go - dynamic values and types for the memory core

package memvm

import "fmt"

// DTyp is a dynamic type as seen by the memory core. The interpreter
// collaborator constructs these from IR type syntax; the memory core
// only needs sizeof and structural recursion over them.
type DTyp struct {
	Kind   DTypKind
	Width  int    // Integer: bit width
	Elem   *DTyp  // Array/Vector: element type
	Count  int    // Array/Vector: element count
	Fields []DTyp // Struct/PackedStruct: field types in order
}

type DTypKind int

const (
	TInt DTypKind = iota
	TPointer
	TFloat
	TDouble
	TArray
	TStruct
	TPackedStruct
	TVector
	TVoid
)

func IntType(width int) DTyp   { return DTyp{Kind: TInt, Width: width} }
func ArrayType(n int, t DTyp) DTyp {
	elem := t
	return DTyp{Kind: TArray, Count: n, Elem: &elem}
}
func VectorType(n int, t DTyp) DTyp {
	elem := t
	return DTyp{Kind: TVector, Count: n, Elem: &elem}
}
func StructType(fields ...DTyp) DTyp       { return DTyp{Kind: TStruct, Fields: fields} }
func PackedStructType(fields ...DTyp) DTyp { return DTyp{Kind: TPackedStruct, Fields: fields} }

var (
	Ptr64   = DTyp{Kind: TPointer}
	Float32 = DTyp{Kind: TFloat}
	Float64 = DTyp{Kind: TDouble}
	Void    = DTyp{Kind: TVoid}
)

func (t DTyp) String() string {
	switch t.Kind {
	case TInt:
		return fmt.Sprintf("i%d", t.Width)
	case TPointer:
		return "ptr"
	case TFloat:
		return "f32"
	case TDouble:
		return "f64"
	case TArray:
		return fmt.Sprintf("[%d x %s]", t.Count, t.Elem)
	case TVector:
		return fmt.Sprintf("<%d x %s>", t.Count, t.Elem)
	case TStruct:
		return fmt.Sprintf("struct%v", t.Fields)
	case TPackedStruct:
		return fmt.Sprintf("<struct%v>", t.Fields)
	case TVoid:
		return "void"
	}
	return "?"
}

// Address is the symbolic pointer the interpreter carries: a logical
// block id plus a byte offset into it.
type Address struct {
	Block  int64
	Offset int64
}

func (a Address) String() string { return fmt.Sprintf("(%d+%d)", a.Block, a.Offset) }

// DValue is a fully-defined dynamic value. Kind selects which field is
// meaningful; the zero value of the others is unused.
type DValue struct {
	Kind    DValueKind
	Addr    Address
	IntW    int   // bit width, for integer kinds
	IntV    int64 // IntValue masks it to the low IntW bits (zero-extended)
	F32     float32
	F64     float64
	Fields  []DValue // struct
	Elems   []DValue // array
}

type DValueKind int

const (
	VAddr DValueKind = iota
	VInt
	VF32
	VF64
	VStruct
	VArray
	VUnit
)

func IntValue(width int, v int64) DValue { return DValue{Kind: VInt, IntW: width, IntV: maskInt(width, v)} }
func AddrValue(a Address) DValue         { return DValue{Kind: VAddr, Addr: a} }
func F32Value(f float32) DValue          { return DValue{Kind: VF32, F32: f} }
func F64Value(f float64) DValue          { return DValue{Kind: VF64, F64: f} }
func StructValue(fs ...DValue) DValue    { return DValue{Kind: VStruct, Fields: fs} }
func ArrayValue(es ...DValue) DValue     { return DValue{Kind: VArray, Elems: es} }

var UnitValue = DValue{Kind: VUnit}

func maskInt(width int, v int64) int64 {
	if width <= 0 || width >= 64 {
		return v
	}
	mask := int64(1)<<uint(width) - 1
	return v & mask
}

// UValue is a DValue extended with Undef(t), produced whenever a
// deserialization touches a byte whose provenance is not fully known.
type UValue struct {
	Defined bool
	Value   DValue // meaningful iff Defined
	Undef   DTyp   // meaningful iff !Defined
}

func Defined(v DValue) UValue { return UValue{Defined: true, Value: v} }
func UndefOf(t DTyp) UValue   { return UValue{Defined: false, Undef: t} }

func (u UValue) String() string {
	if !u.Defined {
		return fmt.Sprintf("undef(%s)", u.Undef)
	}
	return fmt.Sprintf("%v", u.Value)
}
