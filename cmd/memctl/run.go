// run.go - runs a Lua script against the memory core, for scripted
// fuzzing and scenario replay without rebuilding memctl.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/memvm/memvm"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.lua>",
		Short: "Run a Lua script that drives the memory core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(cmd, args[0])
		},
	}
}

// scriptEnv holds the state a running script drives and the address
// handles it has produced, addressed by integer handle from Lua.
type scriptEnv struct {
	h    *memvm.Handler
	s    memvm.MemoryState
	vars []memvm.Address
}

func runScript(cmd *cobra.Command, path string) error {
	env := &scriptEnv{h: memvm.NewHandler(), s: memvm.EmptyMemoryState()}

	L := lua.NewState()
	defer L.Close()

	L.SetGlobal("alloca", L.NewFunction(env.luaAlloca))
	L.SetGlobal("store", L.NewFunction(env.luaStore))
	L.SetGlobal("load", L.NewFunction(env.luaLoad))
	L.SetGlobal("gep", L.NewFunction(env.luaGEP))
	L.SetGlobal("push", L.NewFunction(env.luaPush))
	L.SetGlobal("pop", L.NewFunction(env.luaPop))
	L.SetGlobal("itop", L.NewFunction(env.luaItoP))
	L.SetGlobal("ptoi", L.NewFunction(env.luaPtoI))
	L.SetGlobal("memcpy", L.NewFunction(env.luaMemcpy))
	L.SetGlobal("call_intrinsic", L.NewFunction(env.luaCallIntrinsic))
	L.SetGlobal("stats", L.NewFunction(env.luaStats))

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script error: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "script completed")
	return nil
}

func (e *scriptEnv) bind(addr memvm.Address) int {
	e.vars = append(e.vars, addr)
	return len(e.vars) - 1
}

func (e *scriptEnv) addrOf(L *lua.LState, handle int) (memvm.Address, error) {
	if handle < 0 || handle >= len(e.vars) {
		return memvm.Address{}, fmt.Errorf("no such address handle %d", handle)
	}
	return e.vars[handle], nil
}

func raiseOnFail(L *lua.LState, err error, ub *memvm.UBSignal) bool {
	if err != nil {
		L.RaiseError("memory error: %v", err)
		return true
	}
	if ub != nil {
		L.RaiseError("undefined behaviour: %v", ub)
		return true
	}
	return false
}

// luaAlloca(typestr) -> handle
func (e *scriptEnv) luaAlloca(L *lua.LState) int {
	t, err := parseType(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	next, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvAlloca, Type: t})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	e.s = next
	L.Push(lua.LNumber(e.bind(res.Value.Addr)))
	return 1
}

// store(handle, typestr, value)
func (e *scriptEnv) luaStore(L *lua.LState) int {
	addr, err := e.addrOf(L, L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	t, err := parseType(L.CheckString(2))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	v, err := luaToValue(L, t, L.Get(3))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	next, _, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvStore, Addr: addr, Value: v})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	e.s = next
	return 0
}

// load(handle, typestr) -> value, defined
func (e *scriptEnv) luaLoad(L *lua.LState) int {
	addr, err := e.addrOf(L, L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	t, err := parseType(L.CheckString(2))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	_, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvLoad, Addr: addr, Type: t})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	if !res.Defined {
		L.Push(lua.LNil)
		L.Push(lua.LFalse)
		return 2
	}
	L.Push(valueToLua(L, res.Value))
	L.Push(lua.LTrue)
	return 2
}

// gep(handle, typestr, "itype:idx", ...) -> handle
func (e *scriptEnv) luaGEP(L *lua.LState) int {
	addr, err := e.addrOf(L, L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	t, err := parseType(L.CheckString(2))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	var indices []memvm.DValue
	for i := 3; i <= L.GetTop(); i++ {
		v, err := parseIndexed(L.CheckString(i))
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		indices = append(indices, v)
	}
	_, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvGEP, Addr: addr, Type: t, Indices: indices})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	L.Push(lua.LNumber(e.bind(res.Value.Addr)))
	return 1
}

func (e *scriptEnv) luaPush(L *lua.LState) int {
	next, _, _, _ := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvMemPush})
	e.s = next
	return 0
}

func (e *scriptEnv) luaPop(L *lua.LState) int {
	next, _, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvMemPop})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	e.s = next
	return 0
}

// itop(typestr, intval) -> handle
func (e *scriptEnv) luaItoP(L *lua.LState) int {
	t, err := parseType(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	n := L.CheckInt64(2)
	_, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvItoP, Int: memvm.IntValue(t.Width, n)})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	L.Push(lua.LNumber(e.bind(res.Value.Addr)))
	return 1
}

// ptoi(typestr, handle) -> int
func (e *scriptEnv) luaPtoI(L *lua.LState) int {
	t, err := parseType(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	addr, err := e.addrOf(L, L.CheckInt(2))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	next, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvPtoI, Addr: addr, Type: t})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	e.s = next
	L.Push(lua.LNumber(res.Value.IntV))
	return 1
}

// memcpy(dstHandle, srcHandle, len)
func (e *scriptEnv) luaMemcpy(L *lua.LState) int {
	dst, err := e.addrOf(L, L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	src, err := e.addrOf(L, L.CheckInt(2))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	n := L.CheckInt64(3)
	next, _, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{
		Kind: memvm.EvIntrinsic, Name: memvm.MemcpyIntrinsicName,
		Args: []memvm.DValue{memvm.AddrValue(dst), memvm.AddrValue(src), memvm.IntValue(32, n), memvm.IntValue(32, 0), memvm.IntValue(1, 0)},
	})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	e.s = next
	return 0
}

// call_intrinsic(name, "itype:arg", ...) -> value
func (e *scriptEnv) luaCallIntrinsic(L *lua.LState) int {
	name := L.CheckString(1)
	var args []memvm.DValue
	for i := 2; i <= L.GetTop(); i++ {
		v, err := parseIndexed(L.CheckString(i))
		if err != nil {
			L.RaiseError("%v", err)
			return 0
		}
		args = append(args, v)
	}
	_, res, err, ub := e.h.HandleEvent(e.s, memvm.MemEvent{Kind: memvm.EvIntrinsic, Name: name, Args: args})
	if raiseOnFail(L, err, ub) {
		return 0
	}
	L.Push(valueToLua(L, res.Value))
	return 1
}

func (e *scriptEnv) luaStats(L *lua.LState) int {
	st := e.s.Stats()
	tbl := L.NewTable()
	tbl.RawSetString("logical_blocks", lua.LNumber(st.NumLogicalBlocks))
	tbl.RawSetString("concrete_blocks", lua.LNumber(st.NumConcreteBlocks))
	tbl.RawSetString("frame_depth", lua.LNumber(st.FrameDepth))
	tbl.RawSetString("live_bytes", lua.LNumber(st.LiveBytes))
	L.Push(tbl)
	return 1
}

func luaToValue(L *lua.LState, t memvm.DTyp, lv lua.LValue) (memvm.DValue, error) {
	switch t.Kind {
	case memvm.TInt:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return memvm.DValue{}, fmt.Errorf("expected a number for %v, got %v", t, lv.Type())
		}
		return memvm.IntValue(t.Width, int64(n)), nil
	case memvm.TFloat:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return memvm.DValue{}, fmt.Errorf("expected a number for %v, got %v", t, lv.Type())
		}
		return memvm.F32Value(float32(n)), nil
	case memvm.TDouble:
		n, ok := lv.(lua.LNumber)
		if !ok {
			return memvm.DValue{}, fmt.Errorf("expected a number for %v, got %v", t, lv.Type())
		}
		return memvm.F64Value(float64(n)), nil
	}
	return memvm.DValue{}, fmt.Errorf("cannot build a literal value of type %v from Lua", t)
}

func valueToLua(L *lua.LState, v memvm.DValue) lua.LValue {
	switch v.Kind {
	case memvm.VInt:
		return lua.LNumber(v.IntV)
	case memvm.VF32:
		return lua.LNumber(v.F32)
	case memvm.VF64:
		return lua.LNumber(v.F64)
	case memvm.VAddr:
		return lua.LString(v.Addr.String())
	case memvm.VUnit:
		return lua.LNil
	}
	return lua.LNil
}
