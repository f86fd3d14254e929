// scenario.go - replays the memory core's canonical scenarios and
// reports pass/fail, for quick confidence checks without going through
// `go test`.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/memvm/memvm"
)

type scenarioResult struct {
	name string
	err  error
}

func scenarioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenario [name]",
		Short: "Replay the built-in memory-core scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := runScenarios()
			failed := 0
			for _, r := range results {
				if len(args) == 1 && args[0] != r.name {
					continue
				}
				if r.err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", r.name, r.err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", r.name)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
}

func runScenarios() []scenarioResult {
	return []scenarioResult{
		{"allocate-store-load-i64", scenarioAllocateStoreLoad()},
		{"overlapping-writes-shadow", scenarioOverlappingWrites()},
		{"gep-struct-i32-i64", scenarioGEPStruct()},
		{"array-round-trip", scenarioArrayRoundTrip()},
		{"pointer-provenance", scenarioPointerProvenance()},
		{"frame-pop-deallocates", scenarioFramePop()},
	}
}

func scenarioAllocateStoreLoad() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()
	s, res, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: addr, Value: memvm.IntValue(64, 0x0102030405060708)})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	_, res, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: addr, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	if !res.Defined || res.Value.IntV != 0x0102030405060708 {
		return fmt.Errorf("got %v", res)
	}
	return nil
}

func scenarioOverlappingWrites() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()
	s, res, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: addr, Value: memvm.IntValue(64, 0x00000000000000FF)})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	at1 := memvm.Address{Block: addr.Block, Offset: addr.Offset + 1}
	hi := uint64(0xAAAAAAAAAAAAAA00)
	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: at1, Value: memvm.IntValue(64, int64(hi))})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	_, res, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: addr, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	want := int64(hi<<8 | 0xFF)
	if !res.Defined || res.Value.IntV != want {
		return fmt.Errorf("got 0x%X, want 0x%X", uint64(res.Value.IntV), uint64(want))
	}
	return nil
}

func scenarioGEPStruct() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()
	st := memvm.StructType(memvm.IntType(32), memvm.IntType(64))

	s, res, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: st})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	base := res.Value.Addr

	s, res, err, ub = h.HandleEvent(s, memvm.MemEvent{
		Kind: memvm.EvGEP, Type: st, Addr: base,
		Indices: []memvm.DValue{memvm.IntValue(32, 0), memvm.IntValue(32, 1)},
	})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	field1 := res.Value.Addr
	if field1 != (memvm.Address{Block: base.Block, Offset: 8}) {
		return fmt.Errorf("got %v, want offset 8", field1)
	}

	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: field1, Value: memvm.IntValue(64, 0xCAFEBABE)})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	_, res, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: field1, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	if !res.Defined || res.Value.IntV != 0xCAFEBABE {
		return fmt.Errorf("got %v", res)
	}
	return nil
}

func scenarioArrayRoundTrip() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()
	at := memvm.ArrayType(3, memvm.IntType(32))

	s, res, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: at})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	base := res.Value.Addr

	for i, v := range []int64{7, 8, 9} {
		addr := memvm.Address{Block: base.Block, Offset: base.Offset + int64(i)*8}
		s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: addr, Value: memvm.IntValue(32, v)})
		if err := checkFail(err, ub); err != nil {
			return err
		}
	}

	got, err := memvm.ReadArray(s, base.Block, base.Offset, 3, memvm.IntType(32))
	if err != nil {
		return err
	}
	for i, w := range []int64{7, 8, 9} {
		if !got[i].Defined || got[i].Value.IntV != w {
			return fmt.Errorf("elem %d = %v, want %d", i, got[i], w)
		}
	}
	return nil
}

func scenarioPointerProvenance() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()

	s, res1, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	b1 := res1.Value.Addr

	s, res2, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	b2 := res2.Value.Addr

	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvStore, Addr: b1, Value: memvm.AddrValue(b2)})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	_, asPtr, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: b1, Type: memvm.Ptr64})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	if !asPtr.Defined || asPtr.Value.Addr != b2 {
		return fmt.Errorf("load-as-pointer got %v, want %v", asPtr, b2)
	}

	_, asInt, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: b1, Type: memvm.IntType(64)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	if asInt.Defined {
		return fmt.Errorf("load-as-i64 of pointer-tagged bytes should be Undef, got %v", asInt)
	}
	return nil
}

func scenarioFramePop() error {
	h := memvm.NewHandler()
	s := memvm.EmptyMemoryState()

	s, _, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvMemPush})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	s, res, err, ub := h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: memvm.IntType(32)})
	if err := checkFail(err, ub); err != nil {
		return err
	}
	addr := res.Value.Addr

	s, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvMemPop})
	if err := checkFail(err, ub); err != nil {
		return err
	}

	_, _, err, ub = h.HandleEvent(s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: addr, Type: memvm.IntType(32)})
	if err != nil {
		return fmt.Errorf("expected UB, not a fatal error: %v", err)
	}
	if ub == nil || ub.Kind != memvm.UBReadUnallocated {
		return fmt.Errorf("got %v", ub)
	}
	return nil
}

func checkFail(err error, ub *memvm.UBSignal) error {
	if err != nil {
		return fmt.Errorf("unexpected fatal error: %v", err)
	}
	if ub != nil {
		return fmt.Errorf("unexpected UB signal: %v", ub)
	}
	return nil
}
