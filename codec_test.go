package memvm

import "testing"

func TestSizeof(t *testing.T) {
	cases := []struct {
		name string
		typ  DTyp
		want int64
	}{
		{"i1", IntType(1), 8},
		{"i8", IntType(8), 8},
		{"i32", IntType(32), 8},
		{"i64", IntType(64), 8},
		{"ptr", Ptr64, 8},
		{"f32", Float32, 4},
		{"f64", Float64, 8},
		{"array3xi32", ArrayType(3, IntType(32)), 24},
		{"struct i32 i64", StructType(IntType(32), IntType(64)), 16},
		{"void", Void, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Sizeof(c.typ); got != c.want {
				t.Fatalf("Sizeof(%s) = %d, want %d", c.typ, got, c.want)
			}
		})
	}
}

func TestSerializeDeserializeIntRoundTrip(t *testing.T) {
	v := IntValue(64, 0x0102030405060708)
	bs := Serialize(v)
	u := Deserialize(bs, IntType(64))
	if !u.Defined || u.Value.IntV != v.IntV {
		t.Fatalf("round trip got %v, want %v", u, v)
	}
}

func TestSerializeDeserializeNarrowIntTruncates(t *testing.T) {
	// Integers are stored as 8 padded bytes; only the low byte should
	// survive a deserialize at width 8.
	v := IntValue(64, 0xABFF)
	bs := Serialize(v)
	u := Deserialize(bs, IntType(8))
	if !u.Defined || u.Value.IntV != 0xFF {
		t.Fatalf("got %v", u)
	}
}

func TestDeserializeUnsupportedWidthIsUndef(t *testing.T) {
	bs := Serialize(IntValue(64, 42))
	u := Deserialize(bs, IntType(16))
	if u.Defined {
		t.Fatalf("expected Undef for i16, got %v", u)
	}
}

func TestPointerProvenancePreservedAsAddress(t *testing.T) {
	addr := Address{Block: 7, Offset: 3}
	bs := Serialize(AddrValue(addr))
	if len(bs) != 8 || bs[0].Kind != SBPtr || bs[0].Addr != addr {
		t.Fatalf("serialize(addr) head byte wrong: %+v", bs[0])
	}
	for i := 1; i < 8; i++ {
		if bs[i].Kind != SBPtrFrag {
			t.Fatalf("byte %d should be PtrFrag, got %v", i, bs[i].Kind)
		}
	}
	u := Deserialize(bs, Ptr64)
	if !u.Defined || u.Value.Kind != VAddr || u.Value.Addr != addr {
		t.Fatalf("deserialize(ptr) = %v, want Addr(%v)", u, addr)
	}
}

func TestLoadPointerBytesAsIntegerIsUndef(t *testing.T) {
	bs := Serialize(AddrValue(Address{Block: 1, Offset: 0}))
	u := Deserialize(bs, IntType(64))
	if u.Defined {
		t.Fatalf("expected Undef reading pointer bytes as i64, got %v", u)
	}
}

func TestStructRoundTrip(t *testing.T) {
	st := StructType(IntType(32), IntType(64))
	v := StructValue(IntValue(32, 7), IntValue(64, 99))
	bs := Serialize(v)
	if int64(len(bs)) != Sizeof(st) {
		t.Fatalf("serialized length %d, want %d", len(bs), Sizeof(st))
	}
	u := Deserialize(bs, st)
	if !u.Defined {
		t.Fatalf("expected defined struct, got %v", u)
	}
	got := u.Value
	if got.Fields[0].IntV != 7 || got.Fields[1].IntV != 99 {
		t.Fatalf("got %+v", got)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	at := ArrayType(3, IntType(32))
	v := ArrayValue(IntValue(32, 7), IntValue(32, 8), IntValue(32, 9))
	bs := Serialize(v)
	u := Deserialize(bs, at)
	if !u.Defined {
		t.Fatalf("expected defined array, got %v", u)
	}
	want := []int64{7, 8, 9}
	for i, w := range want {
		if u.Value.Elems[i].IntV != w {
			t.Fatalf("elem %d = %d, want %d", i, u.Value.Elems[i].IntV, w)
		}
	}
}
