// intrinsics.go - the intrinsics registry: named pure functions over
// dynamic values, plus the declaration table an interpreter collaborator
// uses to validate call sites before dispatching here.

package memvm

import "math"

// IntrinsicFunc is a pure function over dynamic values. It must not
// touch Memory — memcpy is handled specially by the Handler precisely
// because it needs block access that a pure intrinsic cannot have.
type IntrinsicFunc func(args []DValue) (DValue, error)

// IntrinsicDecl carries the LLVM-level signature of a declared
// intrinsic: its exact symbol name, return type, and parameter types.
type IntrinsicDecl struct {
	Name       string
	ReturnType DTyp
	ParamTypes []DTyp
}

// IntrinsicEntry pairs a declaration with its implementation, per spec
// §6's "ordered catalogue of (declaration, implementation) pairs".
type IntrinsicEntry struct {
	Decl IntrinsicDecl
	Impl IntrinsicFunc
}

// IntrinsicTable is a client-extensible registry keyed by declared name.
type IntrinsicTable struct {
	entries []IntrinsicEntry
	byName  map[string]IntrinsicEntry
}

// NewIntrinsicTable returns a table pre-populated with the built-ins of
// spec §4.8. Callers may Register additional entries to extend it.
func NewIntrinsicTable() *IntrinsicTable {
	t := &IntrinsicTable{byName: make(map[string]IntrinsicEntry)}
	for _, e := range builtinIntrinsics() {
		t.Register(e)
	}
	return t
}

// Register adds or overwrites an entry, keyed by its declared name.
func (t *IntrinsicTable) Register(e IntrinsicEntry) {
	t.entries = append(t.entries, e)
	t.byName[e.Decl.Name] = e
}

// Lookup returns the entry for name, if any.
func (t *IntrinsicTable) Lookup(name string) (IntrinsicEntry, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// Call dispatches to name's implementation after an arity check against
// the declaration's parameter list.
func (t *IntrinsicTable) Call(name string, args []DValue) (DValue, error) {
	e, ok := t.byName[name]
	if !ok {
		return DValue{}, newErr(ErrUnknownIntrinsic, "unknown intrinsic %q", name)
	}
	if len(args) != len(e.Decl.ParamTypes) {
		return DValue{}, newErr(ErrIntrinsicArity, "intrinsic %q expects %d args, got %d", name, len(e.Decl.ParamTypes), len(args))
	}
	return e.Impl(args)
}

func builtinIntrinsics() []IntrinsicEntry {
	return []IntrinsicEntry{
		f32Entry("llvm.fabs.f32", fabs32),
		f64Entry("llvm.fabs.f64", fabs64),
		f32x2Entry("llvm.maxnum.f32", maxnum32),
		f64x2Entry("llvm.maxnum.f64", maxnum64),
		// minimum.f32 registers WITHOUT the "llvm." prefix in the source
		// this spec was distilled from, unlike every sibling intrinsic.
		// Mirrored verbatim rather than silently corrected — see
		// DESIGN.md Open Question Decisions.
		f32x2Entry("minimum.f32", minimum32),
		f64x2Entry("llvm.minimum.f64", minimum64),
		memcpyDecl(),
	}
}

func f32Entry(name string, fn func(float32) float32) IntrinsicEntry {
	return IntrinsicEntry{
		Decl: IntrinsicDecl{Name: name, ReturnType: Float32, ParamTypes: []DTyp{Float32}},
		Impl: func(args []DValue) (DValue, error) {
			if args[0].Kind != VF32 {
				return DValue{}, newErr(ErrTypeError, "%s expects f32, got %v", name, args[0])
			}
			return F32Value(fn(args[0].F32)), nil
		},
	}
}

func f64Entry(name string, fn func(float64) float64) IntrinsicEntry {
	return IntrinsicEntry{
		Decl: IntrinsicDecl{Name: name, ReturnType: Float64, ParamTypes: []DTyp{Float64}},
		Impl: func(args []DValue) (DValue, error) {
			if args[0].Kind != VF64 {
				return DValue{}, newErr(ErrTypeError, "%s expects f64, got %v", name, args[0])
			}
			return F64Value(fn(args[0].F64)), nil
		},
	}
}

func f32x2Entry(name string, fn func(a, b float32) float32) IntrinsicEntry {
	return IntrinsicEntry{
		Decl: IntrinsicDecl{Name: name, ReturnType: Float32, ParamTypes: []DTyp{Float32, Float32}},
		Impl: func(args []DValue) (DValue, error) {
			if args[0].Kind != VF32 || args[1].Kind != VF32 {
				return DValue{}, newErr(ErrTypeError, "%s expects (f32, f32)", name)
			}
			return F32Value(fn(args[0].F32, args[1].F32)), nil
		},
	}
}

func f64x2Entry(name string, fn func(a, b float64) float64) IntrinsicEntry {
	return IntrinsicEntry{
		Decl: IntrinsicDecl{Name: name, ReturnType: Float64, ParamTypes: []DTyp{Float64, Float64}},
		Impl: func(args []DValue) (DValue, error) {
			if args[0].Kind != VF64 || args[1].Kind != VF64 {
				return DValue{}, newErr(ErrTypeError, "%s expects (f64, f64)", name)
			}
			return F64Value(fn(args[0].F64, args[1].F64)), nil
		},
	}
}

func fabs32(v float32) float32 { return float32(math.Abs(float64(v))) }
func fabs64(v float64) float64 { return math.Abs(v) }

// maxnum/minimum: if either operand is NaN, propagate a NaN built from
// the NaN operand's payload rather than silently picking the other
// (non-NaN) operand, per spec §4.8. Otherwise compare by IEEE `<`:
// maxnum returns b when a < b, else a; minimum returns a when a < b,
// else b.
func maxnum32(a, b float32) float32 {
	if nan, ok := pickNaN32(a, b); ok {
		return nan
	}
	if a < b {
		return b
	}
	return a
}

func minimum32(a, b float32) float32 {
	if nan, ok := pickNaN32(a, b); ok {
		return nan
	}
	if a < b {
		return a
	}
	return b
}

func maxnum64(a, b float64) float64 {
	if nan, ok := pickNaN64(a, b); ok {
		return nan
	}
	if a < b {
		return b
	}
	return a
}

func minimum64(a, b float64) float64 {
	if nan, ok := pickNaN64(a, b); ok {
		return nan
	}
	if a < b {
		return a
	}
	return b
}

func pickNaN32(a, b float32) (float32, bool) {
	switch {
	case isNaN32(a):
		return a, true
	case isNaN32(b):
		return b, true
	default:
		return 0, false
	}
}

func pickNaN64(a, b float64) (float64, bool) {
	switch {
	case math.IsNaN(float64(a)):
		return a, true
	case math.IsNaN(float64(b)):
		return b, true
	default:
		return 0, false
	}
}

func isNaN32(v float32) bool { return math.IsNaN(float64(v)) }

// MemcpyIntrinsicName is the declared name of the one intrinsic that
// needs Memory access a pure IntrinsicFunc cannot have. The Handler's
// EvIntrinsic case special-cases this exact name before reaching Call.
const MemcpyIntrinsicName = "llvm.memcpy.p0i8.p0i8.i32"

// memcpyDecl registers the declaration only; the implementation lives
// on the Handler because it needs Memory access a pure IntrinsicFunc
// does not have (spec §4.8: "handled specially by the memory core").
// Its Impl here always fails, so that a caller reaching this table
// through some path other than the Handler's EvIntrinsic dispatch
// (which intercepts this name before ever calling Impl) gets a clear
// error instead of silently doing nothing.
func memcpyDecl() IntrinsicEntry {
	return IntrinsicEntry{
		Decl: IntrinsicDecl{
			Name:       MemcpyIntrinsicName,
			ReturnType: Void,
			ParamTypes: []DTyp{Ptr64, Ptr64, IntType(32), IntType(32), IntType(1)},
		},
		Impl: func(args []DValue) (DValue, error) {
			return DValue{}, newErr(ErrTypeError, "%s must be dispatched through the handler's Intrinsic event, not called directly", MemcpyIntrinsicName)
		},
	}
}
