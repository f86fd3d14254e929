// access.go - typed loads and stores against a logical block's sparse
// byte map.

package memvm

// Read implements spec §4.6. Reading beyond a block's declared size (or
// from a block id that was never written at those offsets) yields
// Undef, not a failure; only reading through an address whose block id
// does not exist at all is an error.
//
// The returned error, when non-nil, is always an ErrReadUnallocated
// *MemError. Read itself does not decide whether that is fatal or UB —
// the Handler makes that call per spec §7, converting it to a UBSignal
// for the Load event (the only caller that reaches the interpreter
// directly).
func Read(s MemoryState, ptr Address, t DTyp) (UValue, error) {
	blk, ok := s.Mem.getLogical(ptr.Block)
	if !ok {
		return UValue{}, newErr(ErrReadUnallocated, "read from unallocated block %d", ptr.Block)
	}
	n := Sizeof(t)
	bs := lookupAllIndex(ptr.Offset, n, blk.Bytes, undefSB)
	for i := range bs {
		if ptr.Offset+int64(i) >= blk.Size {
			bs[i] = undefSB
		}
	}
	return Deserialize(bs, t), nil
}

// Write implements spec §4.6. The block's declared size and concrete id
// are preserved; a write past the end of the declared size still lands
// in the sparse byte map, but Size stays fixed and Read reports every
// offset at or past Size as Undef.
func Write(s MemoryState, ptr Address, v DValue) (MemoryState, error) {
	if _, ok := s.Mem.getLogical(ptr.Block); !ok {
		return s, newErr(ErrWriteUnallocated, "write to unallocated block %d", ptr.Block)
	}
	mem := s.Mem.clone()
	newBlk := mem.Logical[ptr.Block]
	addAllIndex(Serialize(v), ptr.Offset, newBlk.Bytes)
	mem.addLogical(ptr.Block, newBlk)
	return MemoryState{Mem: mem, Frames: s.Frames}, nil
}

// ReadArray pins down spec §9's "get_array_mem_block" ambiguity: n is
// the authoritative element count, and exactly n contiguous elements are
// read starting at off (the range is [off, off+n*sizeof(elem)), i.e. the
// upper bound is exclusive — see DESIGN.md Open Question Decisions).
func ReadArray(s MemoryState, b int64, off int64, n int, elem DTyp) ([]UValue, error) {
	blk, ok := s.Mem.getLogical(b)
	if !ok {
		return nil, newErr(ErrReadUnallocated, "read_array from unallocated block %d", b)
	}
	elemSize := Sizeof(elem)
	out := make([]UValue, n)
	for i := 0; i < n; i++ {
		bs := lookupAllIndex(off+int64(i)*elemSize, elemSize, blk.Bytes, undefSB)
		out[i] = Deserialize(bs, elem)
	}
	return out, nil
}
