// repl.go - an interactive console over the memory core. Each line is a
// small textual command; results that are addresses are bound to $N
// variables so later commands can refer back to them.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.design/x/clipboard"
	"golang.org/x/term"

	"github.com/memvm/memvm"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive console over the memory core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd)
		},
	}
}

type replState struct {
	h      *memvm.Handler
	s      memvm.MemoryState
	vars   []memvm.Address
	last   string
	clipOK bool
}

func runRepl(cmd *cobra.Command) error {
	r := &replState{h: memvm.NewHandler(), s: memvm.EmptyMemoryState()}
	r.clipOK = clipboard.Init() == nil

	// Line editing is left to the terminal in cooked mode; raw mode is
	// never entered. term is used only to report whether stdin is a tty.
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(cmd.OutOrStdout(), "(interactive terminal detected)")
	}

	fmt.Fprintln(cmd.OutOrStdout(), "memctl repl. Type :help for commands, :quit to exit.")
	sc := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "memctl> ")
		if !sc.Scan() {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			return nil
		}
		r.eval(cmd, line)
	}
}

func (r *replState) eval(cmd *cobra.Command, line string) {
	out := cmd.OutOrStdout()
	fields := strings.Fields(line)
	switch fields[0] {
	case ":help":
		fmt.Fprintln(out, "alloca <type> | store $N <type> <value> | load <type> $N | gep <type> $N <itype:idx>... | push | pop | ptoi <type> $N | itop <type> <int> | call <name> <itype:arg>... | :stats | :dump | :quit")
	case ":stats":
		st := r.s.Stats()
		fmt.Fprintf(out, "logical=%d concrete=%d frames=%d live=%d\n", st.NumLogicalBlocks, st.NumConcreteBlocks, st.FrameDepth, st.LiveBytes)
	case ":dump":
		r.dumpLast(out)
	case "alloca":
		r.cmdAlloca(out, fields[1:])
	case "store":
		r.cmdStore(out, fields[1:])
	case "load":
		r.cmdLoad(out, fields[1:])
	case "gep":
		r.cmdGEP(out, fields[1:])
	case "push":
		r.apply(out, memvm.MemEvent{Kind: memvm.EvMemPush})
	case "pop":
		r.apply(out, memvm.MemEvent{Kind: memvm.EvMemPop})
	case "ptoi":
		r.cmdPtoI(out, fields[1:])
	case "itop":
		r.cmdItoP(out, fields[1:])
	case "call":
		r.cmdCall(out, fields[1:])
	default:
		fmt.Fprintf(out, "unrecognised command %q; try :help\n", fields[0])
	}
}

func (r *replState) addrArg(out interface{ Write([]byte) (int, error) }, tok string) (memvm.Address, bool) {
	if !strings.HasPrefix(tok, "$") {
		fmt.Fprintf(out, "expected $N address, got %q\n", tok)
		return memvm.Address{}, false
	}
	n, err := strconv.Atoi(tok[1:])
	if err != nil || n < 0 || n >= len(r.vars) {
		fmt.Fprintf(out, "unknown variable %q\n", tok)
		return memvm.Address{}, false
	}
	return r.vars[n], true
}

func (r *replState) bind(addr memvm.Address) int {
	r.vars = append(r.vars, addr)
	return len(r.vars) - 1
}

func (r *replState) apply(out interface{ Write([]byte) (int, error) }, ev memvm.MemEvent) (memvm.UValue, bool) {
	next, res, err, ub := r.h.HandleEvent(r.s, ev)
	if err != nil {
		fmt.Fprintf(out, "error: %v\n", err)
		return memvm.UValue{}, false
	}
	if ub != nil {
		fmt.Fprintf(out, "undefined behaviour: %v\n", ub)
		return memvm.UValue{}, false
	}
	r.s = next
	r.last = res.String()
	return res, true
}

func (r *replState) cmdAlloca(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(out, "usage: alloca <type>")
		return
	}
	t, err := parseType(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvAlloca, Type: t})
	if !ok {
		return
	}
	id := r.bind(res.Value.Addr)
	fmt.Fprintf(out, "$%d = %v\n", id, res.Value.Addr)
}

func (r *replState) cmdStore(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) != 3 {
		fmt.Fprintln(out, "usage: store $N <type> <value>")
		return
	}
	addr, ok := r.addrArg(out, args[0])
	if !ok {
		return
	}
	t, err := parseType(args[1])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	v, err := parseValue(t, args[2])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	if _, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvStore, Addr: addr, Value: v}); ok {
		fmt.Fprintln(out, "ok")
	}
}

func (r *replState) cmdLoad(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: load <type> $N")
		return
	}
	t, err := parseType(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	addr, ok := r.addrArg(out, args[1])
	if !ok {
		return
	}
	if res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvLoad, Addr: addr, Type: t}); ok {
		fmt.Fprintln(out, res)
	}
}

func (r *replState) cmdGEP(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: gep <type> $N <itype:idx>...")
		return
	}
	t, err := parseType(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	addr, ok := r.addrArg(out, args[1])
	if !ok {
		return
	}
	var indices []memvm.DValue
	for _, tok := range args[2:] {
		v, err := parseIndexed(tok)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		indices = append(indices, v)
	}
	res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvGEP, Addr: addr, Type: t, Indices: indices})
	if !ok {
		return
	}
	id := r.bind(res.Value.Addr)
	fmt.Fprintf(out, "$%d = %v\n", id, res.Value.Addr)
}

func (r *replState) cmdPtoI(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: ptoi <type> $N")
		return
	}
	t, err := parseType(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	addr, ok := r.addrArg(out, args[1])
	if !ok {
		return
	}
	if res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvPtoI, Addr: addr, Type: t}); ok {
		fmt.Fprintln(out, res)
	}
}

func (r *replState) cmdItoP(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(out, "usage: itop <type> <int>")
		return
	}
	t, err := parseType(args[0])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	n, err := strconv.ParseInt(args[1], 0, 64)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvItoP, Int: memvm.IntValue(t.Width, n)})
	if !ok {
		return
	}
	id := r.bind(res.Value.Addr)
	fmt.Fprintf(out, "$%d = %v\n", id, res.Value.Addr)
}

func (r *replState) cmdCall(out interface{ Write([]byte) (int, error) }, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: call <name> <itype:arg>...")
		return
	}
	var vs []memvm.DValue
	for _, tok := range args[1:] {
		v, err := parseIndexed(tok)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		vs = append(vs, v)
	}
	if res, ok := r.apply(out, memvm.MemEvent{Kind: memvm.EvIntrinsic, Name: args[0], Args: vs}); ok {
		fmt.Fprintln(out, res)
	}
}

func (r *replState) dumpLast(out interface{ Write([]byte) (int, error) }) {
	if !r.clipOK {
		fmt.Fprintln(out, "clipboard unavailable on this system")
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(r.last))
	fmt.Fprintf(out, "copied %q to clipboard\n", r.last)
}

// parseIndexed parses "type:value" tokens used for GEP indices and
// intrinsic call arguments.
func parseIndexed(tok string) (memvm.DValue, error) {
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 {
		return memvm.DValue{}, fmt.Errorf("expected type:value, got %q", tok)
	}
	t, err := parseType(parts[0])
	if err != nil {
		return memvm.DValue{}, err
	}
	return parseValue(t, parts[1])
}

func parseValue(t memvm.DTyp, s string) (memvm.DValue, error) {
	switch t.Kind {
	case memvm.TInt:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return memvm.DValue{}, err
		}
		return memvm.IntValue(t.Width, n), nil
	case memvm.TFloat:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return memvm.DValue{}, err
		}
		return memvm.F32Value(float32(f)), nil
	case memvm.TDouble:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return memvm.DValue{}, err
		}
		return memvm.F64Value(f), nil
	}
	return memvm.DValue{}, fmt.Errorf("cannot parse a literal value of type %v", t)
}
