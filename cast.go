// cast.go - pointer/integer casts: concretize_block lazily binds a
// logical block to a numeric address range the first time it is needed,
// PtoI/ItoP translate between that range and symbolic addresses.

package memvm

// concretizeBlock implements spec §4.7. If the logical block does not
// exist this is a defensive no-op that returns the id unchanged. PtoI
// checks only the shapes of its type and operand, not that the block
// exists, so a dangling address reaches here and its block id comes back
// as the "concrete" base.
func concretizeBlock(s MemoryState, b int64) (int64, MemoryState) {
	blk, ok := s.Mem.getLogical(b)
	if !ok {
		return b, s
	}
	if blk.ConcreteID != nil {
		return *blk.ConcreteID, s
	}

	mem := s.Mem.clone()
	c := mem.nextConcreteKey()
	mem.addConcrete(c, ConcreteBlock{Size: blk.Size, LogicalID: b})

	newBlk := mem.Logical[b]
	cid := c
	newBlk.ConcreteID = &cid
	mem.addLogical(b, newBlk)

	return c, MemoryState{Mem: mem, Frames: s.Frames}
}

// PtoI implements spec §4.7: cast an address to an integer of width w,
// concretizing its block first if needed.
func PtoI(s MemoryState, t DTyp, v DValue) (MemoryState, DValue, error) {
	if t.Kind != TInt {
		return s, DValue{}, newErr(ErrTypeError, "ptoi target type must be an integer, got %s", t)
	}
	if v.Kind != VAddr {
		return s, DValue{}, newErr(ErrTypeError, "ptoi operand must be an address, got %v", v)
	}

	c, next := concretizeBlock(s, v.Addr.Block)
	result := IntValue(t.Width, c+v.Addr.Offset)
	return next, result, nil
}

// concreteToLogical scans Concrete for the region containing address c,
// returning the shadowed logical block id and the offset within it.
func concreteToLogical(mem Memory, c int64) (int64, int64, bool) {
	for base, blk := range mem.Concrete {
		if c >= base && c < base+blk.Size {
			return blk.LogicalID, c - base, true
		}
	}
	return 0, 0, false
}

// ItoP implements spec §4.7. Failure to find a containing concrete
// region is UB, not fatal — the caller (Handler) threads that through
// the UBSignal channel, not a MemError.
func ItoP(s MemoryState, v DValue) (Address, bool, error) {
	if v.Kind != VInt {
		return Address{}, false, newErr(ErrTypeError, "itop operand must be an integer, got %v", v)
	}
	b, off, ok := concreteToLogical(s.Mem, unsignedWord(v))
	if !ok {
		return Address{}, false, nil
	}
	return Address{Block: b, Offset: off}, true, nil
}

func unsignedWord(v DValue) int64 {
	return unsignedIndex(v)
}
