// handler.go - the memory handler: the dispatch surface that consumes
// memory events and returns an updated state plus a result. This is the
// only place spec §7's two error channels meet: a MemError return is
// fatal to the caller, a non-nil UBSignal is the side-channel signal,
// and the two are mutually exclusive on any given call.

package memvm

// EventKind enumerates the events the Handler accepts, matching spec §6.
type EventKind int

const (
	EvMemPush EventKind = iota
	EvMemPop
	EvAlloca
	EvLoad
	EvStore
	EvGEP
	EvItoP
	EvPtoI
	EvIntrinsic
)

// MemEvent is a tagged union over the Handler's accepted events. Only
// the fields relevant to Kind are meaningful.
type MemEvent struct {
	Kind EventKind

	// Alloca, Load, GEP, PtoI
	Type DTyp

	// Load, Store, GEP (base), PtoI
	Addr Address

	// Store
	Value DValue

	// GEP
	Indices []DValue

	// ItoP
	Int DValue

	// Intrinsic
	Name string
	Args []DValue
}

// Handler dispatches MemEvents against a MemoryState. It owns an
// IntrinsicTable so callers may extend the built-ins before driving any
// events through it.
type Handler struct {
	Intrinsics *IntrinsicTable
}

// NewHandler returns a Handler pre-loaded with the built-in intrinsics.
func NewHandler() *Handler {
	return &Handler{Intrinsics: NewIntrinsicTable()}
}

// HandleEvent implements spec §4.9's dispatch table. It returns the
// (possibly unchanged) state, a result, a fatal error, and a UB signal.
// Exactly one of (error, UBSignal) is non-nil on any failing call; both
// are nil on success. On a UB signal, the returned state is always the
// pre-event state — no partial mutation (spec §7).
//
// The result is a UValue for every event, not just Load: every other
// event always returns a Defined one, so a caller that only wants
// dvalues can unconditionally take .Value without checking .Defined,
// while Load's result may legitimately be Undef.
func (h *Handler) HandleEvent(s MemoryState, ev MemEvent) (MemoryState, UValue, error, *UBSignal) {
	switch ev.Kind {
	case EvMemPush:
		return MemoryState{Mem: s.Mem, Frames: pushFreshFrame(s.Frames)}, Defined(UnitValue), nil, nil

	case EvMemPop:
		frames, freed, err := freeFrame(s.Frames)
		if err != nil {
			return s, UValue{}, err, nil
		}
		mem := freeLogicalBlocks(s.Mem, freed)
		return MemoryState{Mem: mem, Frames: frames}, Defined(UnitValue), nil, nil

	case EvAlloca:
		next, id, err := Allocate(s, ev.Type)
		if err != nil {
			return s, UValue{}, err, nil
		}
		return next, Defined(AddrValue(Address{Block: id, Offset: 0})), nil, nil

	case EvLoad:
		u, err := Read(s, ev.Addr, ev.Type)
		if err != nil {
			return s, UValue{}, nil, newUB(UBReadUnallocated, "%s", err.(*MemError).Msg)
		}
		return s, u, nil, nil

	case EvStore:
		next, err := Write(s, ev.Addr, ev.Value)
		if err != nil {
			return s, UValue{}, err, nil
		}
		return next, Defined(UnitValue), nil, nil

	case EvGEP:
		addr, err := GEP(ev.Addr, ev.Type, ev.Indices)
		if err != nil {
			return s, UValue{}, err, nil
		}
		return s, Defined(AddrValue(addr)), nil, nil

	case EvItoP:
		addr, ok, err := ItoP(s, ev.Int)
		if err != nil {
			return s, UValue{}, err, nil
		}
		if !ok {
			return s, UValue{}, nil, newUB(UBInvalidConcreteAddress, "no concrete region contains %v", ev.Int)
		}
		return s, Defined(AddrValue(addr)), nil, nil

	case EvPtoI:
		next, v, err := PtoI(s, ev.Type, AddrValue(ev.Addr))
		if err != nil {
			return s, UValue{}, err, nil
		}
		return next, Defined(v), nil, nil

	case EvIntrinsic:
		if ev.Name == MemcpyIntrinsicName {
			next, err := h.memcpy(s, ev.Args)
			if err != nil {
				return s, UValue{}, err, nil
			}
			return next, Defined(UnitValue), nil, nil
		}
		v, err := h.Intrinsics.Call(ev.Name, ev.Args)
		if err != nil {
			return s, UValue{}, err, nil
		}
		return s, Defined(v), nil, nil
	}

	return s, UValue{}, newErr(ErrTypeError, "unknown event kind %d", ev.Kind), nil
}

// freeLogicalBlocks removes every id in freed from mem.Logical, and for
// any that had a concrete shadow, removes that shadow too.
func freeLogicalBlocks(mem Memory, freed []int64) Memory {
	next := mem.clone()
	for _, id := range freed {
		blk, ok := next.Logical[id]
		if !ok {
			continue
		}
		if blk.ConcreteID != nil {
			delete(next.Concrete, *blk.ConcreteID)
		}
		delete(next.Logical, id)
	}
	return next
}

// memcpy implements spec §4.8's special-cased llvm.memcpy.p0i8.p0i8.i32,
// reached only through EvIntrinsic's dispatch. args is (dst, src, len,
// align, isvolatile) per the LLVM intrinsic's own parameter order; align
// and isvolatile are accepted but ignored. The len lowest bytes of src's
// logical block at its offset are read with Undef default and written
// starting at dst's offset. Fails with MissingBlock if either block is
// absent, IntrinsicArity if there are not exactly 5 args, TypeError if
// dst/src are not addresses or len is not an integer.
func (h *Handler) memcpy(s MemoryState, args []DValue) (MemoryState, error) {
	if len(args) != 5 {
		return s, newErr(ErrIntrinsicArity, "%s: want 5 args, got %d", MemcpyIntrinsicName, len(args))
	}
	dst, src, n := args[0], args[1], args[2]
	if dst.Kind != VAddr || src.Kind != VAddr {
		return s, newErr(ErrTypeError, "%s: dst/src must be addresses", MemcpyIntrinsicName)
	}
	if n.Kind != VInt {
		return s, newErr(ErrTypeError, "%s: len must be an integer", MemcpyIntrinsicName)
	}

	srcBlk, ok := s.Mem.getLogical(src.Addr.Block)
	if !ok {
		return s, newErr(ErrMissingBlock, "memcpy: src block %d missing", src.Addr.Block)
	}
	dstBlk, ok := s.Mem.getLogical(dst.Addr.Block)
	if !ok {
		return s, newErr(ErrMissingBlock, "memcpy: dst block %d missing", dst.Addr.Block)
	}

	bytes := lookupAllIndex(src.Addr.Offset, n.IntV, srcBlk.Bytes, undefSB)

	newDst := dstBlk.clone()
	addAllIndex(bytes, dst.Addr.Offset, newDst.Bytes)

	mem := s.Mem.clone()
	mem.addLogical(dst.Addr.Block, newDst)
	return MemoryState{Mem: mem, Frames: s.Frames}, nil
}
