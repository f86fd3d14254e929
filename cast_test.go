package memvm

import "testing"

func TestPtoIThenItoPRoundTrip(t *testing.T) {
	s := EmptyMemoryState()
	s, id, err := Allocate(s, IntType(64))
	if err != nil {
		t.Fatal(err)
	}
	addr := Address{Block: id, Offset: 0}

	s, asInt, err := PtoI(s, IntType(64), AddrValue(addr))
	if err != nil {
		t.Fatal(err)
	}

	got, ok, err := ItoP(s, asInt)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a containing concrete region")
	}
	if got != addr {
		t.Fatalf("got %v, want %v", got, addr)
	}
}

func TestPtoIIsIdempotentOnConcreteID(t *testing.T) {
	s := EmptyMemoryState()
	s, id, _ := Allocate(s, IntType(64))
	addr := Address{Block: id, Offset: 0}

	s, first, err := PtoI(s, IntType(64), AddrValue(addr))
	if err != nil {
		t.Fatal(err)
	}
	_, second, err := PtoI(s, IntType(64), AddrValue(addr))
	if err != nil {
		t.Fatal(err)
	}
	if first.IntV != second.IntV {
		t.Fatalf("concretizing twice gave different addresses: %v vs %v", first, second)
	}
}

func TestPtoIRejectsNonAddress(t *testing.T) {
	s := EmptyMemoryState()
	_, _, err := PtoI(s, IntType(64), IntValue(64, 5))
	if err == nil || err.(*MemError).Kind != ErrTypeError {
		t.Fatalf("got %v", err)
	}
}

func TestItoPInvalidAddressIsNotOK(t *testing.T) {
	s := EmptyMemoryState()
	_, ok, err := ItoP(s, IntValue(64, 0xDEADBEEF))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no containing concrete region")
	}
}

func TestPtoITwoBlocksGetDistinctNonOverlappingRegions(t *testing.T) {
	s := EmptyMemoryState()
	s, b1, _ := Allocate(s, IntType(64))
	s, b2, _ := Allocate(s, IntType(64))

	s, i1, err := PtoI(s, IntType(64), AddrValue(Address{Block: b1}))
	if err != nil {
		t.Fatal(err)
	}
	s, i2, err := PtoI(s, IntType(64), AddrValue(Address{Block: b2}))
	if err != nil {
		t.Fatal(err)
	}
	if i1.IntV == i2.IntV {
		t.Fatalf("two distinct blocks concretized to the same address %d", i1.IntV)
	}
	lo, hi := i1.IntV, i2.IntV
	if lo > hi {
		lo, hi = hi, lo
	}
	if hi < lo+Sizeof(IntType(64)) {
		t.Fatalf("concrete regions overlap: %d, %d", i1.IntV, i2.IntV)
	}
}
