// store.go - the block store: an integer-indexed mapping from block id
// to either a logical block (sized sparse byte array, optionally shadowed
// by a concrete address range) or a concrete block (a numeric address
// range bound to a logical block).

package memvm

// LogicalBlock is a sized byte buffer with pointer-provenance-aware
// contents. Bytes is sparse: a missing index reads as Undef. Size is
// advisory — out-of-range reads return Undef rather than failing, and
// out-of-range writes extend Bytes without updating Size.
type LogicalBlock struct {
	Size       int64
	Bytes      map[int64]SByte
	ConcreteID *int64 // nil until concretized via PtoI
}

func newLogicalBlock(size int64) LogicalBlock {
	blk := LogicalBlock{Size: size, Bytes: make(map[int64]SByte)}
	for i := int64(0); i < size; i++ {
		blk.Bytes[i] = undefSB
	}
	return blk
}

func (b LogicalBlock) clone() LogicalBlock {
	cp := LogicalBlock{Size: b.Size, Bytes: make(map[int64]SByte, len(b.Bytes))}
	for k, v := range b.Bytes {
		cp.Bytes[k] = v
	}
	if b.ConcreteID != nil {
		id := *b.ConcreteID
		cp.ConcreteID = &id
	}
	return cp
}

// ConcreteBlock represents a contiguous integer address range
// [base, base+Size) bound to a logical block, created lazily the first
// time that logical block is concretized.
type ConcreteBlock struct {
	Size      int64
	LogicalID int64
}

// Memory is the pair of maps described in spec §3: logical blocks keyed
// by logical id, concrete blocks keyed by their base address.
type Memory struct {
	Logical  map[int64]LogicalBlock
	Concrete map[int64]ConcreteBlock
}

// EmptyMemory returns a Memory with no allocations.
func EmptyMemory() Memory {
	return Memory{Logical: make(map[int64]LogicalBlock), Concrete: make(map[int64]ConcreteBlock)}
}

func (m Memory) clone() Memory {
	cp := Memory{
		Logical:  make(map[int64]LogicalBlock, len(m.Logical)),
		Concrete: make(map[int64]ConcreteBlock, len(m.Concrete)),
	}
	for k, v := range m.Logical {
		cp.Logical[k] = v.clone()
	}
	for k, v := range m.Concrete {
		cp.Concrete[k] = v
	}
	return cp
}

func (m Memory) addLogical(id int64, blk LogicalBlock) { m.Logical[id] = blk }
func (m Memory) addConcrete(id int64, blk ConcreteBlock) { m.Concrete[id] = blk }

func (m Memory) getLogical(id int64) (LogicalBlock, bool) {
	blk, ok := m.Logical[id]
	return blk, ok
}

func (m Memory) getConcrete(id int64) (ConcreteBlock, bool) {
	blk, ok := m.Concrete[id]
	return blk, ok
}

// nextLogicalKey returns 1 + the maximum existing logical id, starting
// the count from -1 so the first id allocated is 0. The result is never
// a key already present in Logical.
func (m Memory) nextLogicalKey() int64 {
	max := int64(-1)
	for k := range m.Logical {
		if k > max {
			max = k
		}
	}
	return max + 1
}

// nextConcreteKey returns a base address guaranteed not to overlap any
// existing concrete region: one past the end of the highest-based
// existing region, or 1 if there are none.
func (m Memory) nextConcreteKey() int64 {
	maxBase := int64(0)
	found := false
	for k := range m.Concrete {
		if !found || k > maxBase {
			maxBase = k
			found = true
		}
	}
	if !found {
		return 1
	}
	if blk, ok := m.Concrete[maxBase]; ok {
		return maxBase + blk.Size + 1
	}
	return 1
}

// addAllIndex writes values[i] at key base+i, shadowing any prior
// binding at an overlapping key.
func addAllIndex(values []SByte, base int64, into map[int64]SByte) {
	for i, v := range values {
		into[base+int64(i)] = v
	}
}

// lookupAllIndex returns a slice of length n holding the values bound at
// base..base+n-1, substituting def for any missing key.
func lookupAllIndex(base int64, n int64, from map[int64]SByte, def SByte) []SByte {
	out := make([]SByte, n)
	for i := int64(0); i < n; i++ {
		if v, ok := from[base+i]; ok {
			out[i] = v
		} else {
			out[i] = def
		}
	}
	return out
}
