// types.go - a small textual type grammar for driving the memory core
// from the console or a script, independent of any real IR frontend.
//
// Grammar: i<N> | f32 | f64 | ptr | arr(N,T) | struct(T,T,...)

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/memvm/memvm"
)

func parseType(s string) (memvm.DTyp, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "ptr":
		return memvm.Ptr64, nil
	case s == "f32":
		return memvm.Float32, nil
	case s == "f64":
		return memvm.Float64, nil
	case s == "void":
		return memvm.Void, nil
	case strings.HasPrefix(s, "i"):
		w, err := strconv.Atoi(s[1:])
		if err != nil {
			return memvm.DTyp{}, fmt.Errorf("bad integer type %q: %w", s, err)
		}
		return memvm.IntType(w), nil
	case strings.HasPrefix(s, "arr(") && strings.HasSuffix(s, ")"):
		inner := s[len("arr(") : len(s)-1]
		parts := splitTopLevel(inner)
		if len(parts) != 2 {
			return memvm.DTyp{}, fmt.Errorf("arr(N,T) expects 2 parts, got %q", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return memvm.DTyp{}, fmt.Errorf("bad array count in %q: %w", s, err)
		}
		elem, err := parseType(parts[1])
		if err != nil {
			return memvm.DTyp{}, err
		}
		return memvm.ArrayType(n, elem), nil
	case strings.HasPrefix(s, "struct(") && strings.HasSuffix(s, ")"):
		inner := s[len("struct(") : len(s)-1]
		if strings.TrimSpace(inner) == "" {
			return memvm.StructType(), nil
		}
		var fields []memvm.DTyp
		for _, p := range splitTopLevel(inner) {
			t, err := parseType(p)
			if err != nil {
				return memvm.DTyp{}, err
			}
			fields = append(fields, t)
		}
		return memvm.StructType(fields...), nil
	}
	return memvm.DTyp{}, fmt.Errorf("unrecognised type syntax %q", s)
}

// splitTopLevel splits s on commas that are not nested inside parens.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
