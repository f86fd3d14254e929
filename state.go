// state.go - MemoryState pairs a Memory with a FrameStack: the sole
// mutable value threaded through event handling. Every handler method
// takes a MemoryState and returns a new one rather than mutating in
// place, mirroring the source's state-monad style without needing one.

package memvm

// MemoryState is (Memory, FrameStack) from spec §3.
type MemoryState struct {
	Mem    Memory
	Frames FrameStack
}

// EmptyMemoryState is the value of a freshly started activation: no
// blocks, one empty frame.
func EmptyMemoryState() MemoryState {
	return MemoryState{Mem: EmptyMemory(), Frames: EmptyFrameStack()}
}

// Clone performs a deep copy of both maps and the frame stack. Spec §5
// notes that "callers wanting snapshotting must clone before mutation"
// without naming the operation; this is that operation.
func (s MemoryState) Clone() MemoryState {
	return MemoryState{Mem: s.Mem.clone(), Frames: s.Frames.clone()}
}

// Stats is a read-only, observational snapshot for debugging tools. It
// has no effect on semantics.
type Stats struct {
	NumLogicalBlocks  int
	NumConcreteBlocks int
	FrameDepth        int
	LiveBytes         int64
}

func (s MemoryState) Stats() Stats {
	var live int64
	for _, blk := range s.Mem.Logical {
		live += blk.Size
	}
	return Stats{
		NumLogicalBlocks:  len(s.Mem.Logical),
		NumConcreteBlocks: len(s.Mem.Concrete),
		FrameDepth:        len(s.Frames),
		LiveBytes:         live,
	}
}
