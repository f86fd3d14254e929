package memvm

import "testing"

// The six numbered scenarios are encoded one-to-one below, matching the
// names chosen for cmd/memctl's built-in `scenario` runner.

func TestScenario1AllocateStoreLoadI64(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()

	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: addr, Value: IntValue(64, 0x0102030405060708)})
	mustOK(t, err, ub)

	s, res, err, ub = h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: addr, Type: IntType(64)})
	mustOK(t, err, ub)
	if !res.Defined || res.Value.IntV != 0x0102030405060708 {
		t.Fatalf("got %v", res)
	}
}

func TestScenario2OverlappingWritesShadow(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: addr, Value: IntValue(64, 0x00000000000000FF)})
	mustOK(t, err, ub)

	at1 := Address{Block: addr.Block, Offset: addr.Offset + 1}
	hi := uint64(0xAAAAAAAAAAAAAA00)
	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: at1, Value: IntValue(64, int64(hi))})
	mustOK(t, err, ub)

	_, res, err, ub = h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: addr, Type: IntType(64)})
	mustOK(t, err, ub)

	want := int64(hi<<8 | 0xFF)
	if !res.Defined || res.Value.IntV != want {
		t.Fatalf("got 0x%X, want 0x%X", uint64(res.Value.IntV), uint64(want))
	}
}

func TestScenario3GEPIntoStructOfI32I64(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	st := StructType(IntType(32), IntType(64))

	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: st})
	mustOK(t, err, ub)
	base := res.Value.Addr

	s, res, err, ub = h.HandleEvent(s, MemEvent{
		Kind: EvGEP, Type: st, Addr: base,
		Indices: []DValue{IntValue(32, 0), IntValue(32, 1)},
	})
	mustOK(t, err, ub)
	field1 := res.Value.Addr
	if field1 != (Address{Block: base.Block, Offset: 8}) {
		t.Fatalf("got %v, want offset 8", field1)
	}

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: field1, Value: IntValue(64, 0xCAFEBABE)})
	mustOK(t, err, ub)

	_, res, err, ub = h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: field1, Type: IntType(64)})
	mustOK(t, err, ub)
	if !res.Defined || res.Value.IntV != 0xCAFEBABE {
		t.Fatalf("got %v", res)
	}
}

func TestScenario4ArrayRoundTrip(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	at := ArrayType(3, IntType(32))

	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: at})
	mustOK(t, err, ub)
	base := res.Value.Addr

	for i, v := range []int64{7, 8, 9} {
		addr := Address{Block: base.Block, Offset: base.Offset + int64(i)*8}
		s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: addr, Value: IntValue(32, v)})
		mustOK(t, err, ub)
	}

	got, err := ReadArray(s, base.Block, base.Offset, 3, IntType(32))
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{7, 8, 9}
	for i, w := range want {
		if !got[i].Defined || got[i].Value.IntV != w {
			t.Fatalf("elem %d = %v, want %d", i, got[i], w)
		}
	}
}

func TestScenario5PointerProvenance(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()

	s, res1, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)
	b1 := res1.Value.Addr

	s, res2, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)
	b2 := res2.Value.Addr

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: b1, Value: AddrValue(b2)})
	mustOK(t, err, ub)

	_, asPtr, err, ub := h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: b1, Type: Ptr64})
	mustOK(t, err, ub)
	if !asPtr.Defined || asPtr.Value.Addr != b2 {
		t.Fatalf("load-as-pointer got %v, want %v", asPtr, b2)
	}

	_, asInt, err, ub := h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: b1, Type: IntType(64)})
	mustOK(t, err, ub)
	if asInt.Defined {
		t.Fatalf("load-as-i64 of pointer-tagged bytes should be Undef, got %v", asInt)
	}
}

func TestScenario6FramePopDeallocates(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()

	s, _, err, ub := h.HandleEvent(s, MemEvent{Kind: EvMemPush})
	mustOK(t, err, ub)

	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(32)})
	mustOK(t, err, ub)
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvMemPop})
	mustOK(t, err, ub)

	_, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: addr, Type: IntType(32)})
	if err != nil {
		t.Fatalf("expected UB, not a fatal error: %v", err)
	}
	if ub == nil || ub.Kind != UBReadUnallocated {
		t.Fatalf("got %v", ub)
	}
}

func TestAllocaZeroReadIsUndef(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	s, res, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)

	_, loaded, err, ub := h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: res.Value.Addr, Type: IntType(64)})
	mustOK(t, err, ub)
	if loaded.Defined {
		t.Fatalf("expected Undef immediately after allocate, got %v", loaded)
	}
}

func TestEmptyFrameStackMemPopIsFatal(t *testing.T) {
	h := NewHandler()
	s := MemoryState{Mem: EmptyMemory(), Frames: FrameStack{}}
	_, _, err, ub := h.HandleEvent(s, MemEvent{Kind: EvMemPop})
	if err == nil {
		t.Fatal("expected a fatal EmptyFrameStack error")
	}
	if ub != nil {
		t.Fatalf("EmptyFrameStack must be fatal, not UB: %v", ub)
	}
}

func TestItoPOfRandomIntegerIsUB(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	_, _, err, ub := h.HandleEvent(s, MemEvent{Kind: EvItoP, Int: IntValue(64, 0xFEEDFACE)})
	if err != nil {
		t.Fatalf("expected UB not fatal: %v", err)
	}
	if ub == nil || ub.Kind != UBInvalidConcreteAddress {
		t.Fatalf("got %v", ub)
	}
}

func TestWriteUnallocatedIsFatal(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	_, _, err, ub := h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: Address{Block: 99}, Value: IntValue(32, 1)})
	if err == nil {
		t.Fatal("expected a fatal WriteUnallocated error")
	}
	if ub != nil {
		t.Fatalf("WriteUnallocated must be fatal, not UB: %v", ub)
	}
}

func TestMemCpyCopiesBytesBetweenBlocks(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	s, srcRes, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)
	s, dstRes, err, ub := h.HandleEvent(s, MemEvent{Kind: EvAlloca, Type: IntType(64)})
	mustOK(t, err, ub)

	s, _, err, ub = h.HandleEvent(s, MemEvent{Kind: EvStore, Addr: srcRes.Value.Addr, Value: IntValue(64, 0x1122334455667788)})
	mustOK(t, err, ub)

	s, _, err, ub = h.HandleEvent(s, MemEvent{
		Kind: EvIntrinsic, Name: MemcpyIntrinsicName,
		Args: []DValue{AddrValue(dstRes.Value.Addr), AddrValue(srcRes.Value.Addr), IntValue(32, 8), IntValue(32, 0), IntValue(1, 0)},
	})
	mustOK(t, err, ub)

	_, loaded, err, ub := h.HandleEvent(s, MemEvent{Kind: EvLoad, Addr: dstRes.Value.Addr, Type: IntType(64)})
	mustOK(t, err, ub)
	if !loaded.Defined || loaded.Value.IntV != 0x1122334455667788 {
		t.Fatalf("got %v", loaded)
	}
}

func TestMemCpyMissingBlockIsFatal(t *testing.T) {
	h := NewHandler()
	s := EmptyMemoryState()
	_, _, err, ub := h.HandleEvent(s, MemEvent{
		Kind: EvIntrinsic, Name: MemcpyIntrinsicName,
		Args: []DValue{AddrValue(Address{Block: 6}), AddrValue(Address{Block: 5}), IntValue(32, 8), IntValue(32, 0), IntValue(1, 0)},
	})
	if err == nil || err.(*MemError).Kind != ErrMissingBlock {
		t.Fatalf("got err=%v ub=%v", err, ub)
	}
}

func mustOK(t *testing.T, err error, ub *UBSignal) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if ub != nil {
		t.Fatalf("unexpected UB signal: %v", ub)
	}
}
