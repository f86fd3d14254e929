// alloc.go - stack allocation: allocate(t) creates a logical block of
// sizeof(t) bytes, all-Undef, owns it by the current frame, and returns
// its freshly minted id.

package memvm

// Allocate implements spec §4.5. A non-positive sizeof yields an empty
// byte map rather than failing.
func Allocate(s MemoryState, t DTyp) (MemoryState, int64, error) {
	n := Sizeof(t)
	if n < 0 {
		n = 0
	}
	blk := newLogicalBlock(n)

	mem := s.Mem.clone()
	id := mem.nextLogicalKey()
	mem.addLogical(id, blk)

	frames, err := addToFrame(s.Frames, id)
	if err != nil {
		return s, 0, err
	}

	return MemoryState{Mem: mem, Frames: frames}, id, nil
}
