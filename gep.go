// gep.go - Get-Element-Pointer: computes a new (block, offset) address
// from a base pointer, a static type, and an ordered list of index
// values. All indices are interpreted as unsigned.

package memvm

// GEP implements spec §4.3. The first index strides over "arrays of t"
// reachable through the base pointer (sizeof(t) per step); subsequent
// indices recurse into t following arrays/vectors (stride by element
// size) and structs (stride by the sum of preceding field sizes, index
// must be in range).
func GEP(base Address, t DTyp, indices []DValue) (Address, error) {
	if len(indices) == 0 {
		return base, nil
	}

	i0, err := topLevelIndex(indices[0])
	if err != nil {
		return Address{}, err
	}
	off := base.Offset + i0*Sizeof(t)

	cur := t
	for _, idxVal := range indices[1:] {
		k, err := innerIndex(idxVal)
		if err != nil {
			return Address{}, err
		}
		next, delta, err := stepInto(cur, k)
		if err != nil {
			return Address{}, err
		}
		off += delta
		cur = next
	}

	return Address{Block: base.Block, Offset: off}, nil
}

// stepInto advances one level of GEP recursion, returning the next type
// to recurse into and the additional byte offset contributed by index k.
func stepInto(t DTyp, k int64) (DTyp, int64, error) {
	switch t.Kind {
	case TArray, TVector:
		return *t.Elem, k * Sizeof(*t.Elem), nil
	case TStruct, TPackedStruct:
		if k < 0 || int(k) >= len(t.Fields) {
			return DTyp{}, 0, newErr(ErrOverflow, "struct field index %d out of range (%d fields)", k, len(t.Fields))
		}
		var delta int64
		for i := int64(0); i < k; i++ {
			delta += Sizeof(t.Fields[i])
		}
		return t.Fields[k], delta, nil
	default:
		return DTyp{}, 0, newErr(ErrNonIndexable, "type %s is not indexable", t)
	}
}

// topLevelIndex accepts i32 or i64, per spec §4.3 point 3. Any other
// index kind or width fails with NonIntegerIndex. A stricter reading of
// "handle_gep silently discards the tail when the top-level index is
// neither i32 nor i64" (spec §9 open question) would instead fail here
// too; this implementation chooses to fail rather than silently ignore —
// see DESIGN.md Open Question Decisions.
func topLevelIndex(v DValue) (int64, error) {
	if v.Kind != VInt || (v.IntW != 32 && v.IntW != 64) {
		return 0, newErr(ErrNonIntegerIndex, "top-level GEP index must be i32 or i64, got %v", v)
	}
	return unsignedIndex(v), nil
}

// innerIndex accepts i8, i32, or i64 for non-top-level indices.
func innerIndex(v DValue) (int64, error) {
	if v.Kind != VInt || (v.IntW != 8 && v.IntW != 32 && v.IntW != 64) {
		return 0, newErr(ErrNonIntegerIndex, "GEP index must be i8, i32 or i64, got %v", v)
	}
	return unsignedIndex(v), nil
}

// unsignedIndex reinterprets the stored two's-complement word as
// unsigned over its declared width, per spec §4.3's "indexing sign: all
// indices are interpreted as unsigned".
func unsignedIndex(v DValue) int64 {
	if v.IntW >= 64 {
		return int64(uint64(v.IntV))
	}
	u := uint64(v.IntV) & ((uint64(1) << uint(v.IntW)) - 1)
	return int64(u)
}
