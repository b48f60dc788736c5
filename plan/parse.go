package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a plan in the layout grammar:
//
//	plan   = entry { "," entry }
//	entry  = depths "=>" kind "(" int ")"
//	depths = int | int ".." int | int ".." | "_"
//	kind   = "btree" | "pgm" | "model"
//
// Surrounding braces and whitespace are ignored. "_" and the open range "n.."
// cover every depth after the previous entry and must come last.
func Parse(s string) (Plan, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	if strings.TrimSpace(s) == "" {
		return Plan{}, fmt.Errorf("%w: empty layout", ErrInvalid)
	}

	var entries []Entry
	next := 0
	for i, raw := range strings.Split(s, ",") {
		lhs, rhs, ok := strings.Cut(raw, "=>")
		if !ok {
			return Plan{}, fmt.Errorf("%w: entry %d: missing \"=>\" in %q", ErrInvalid, i, strings.TrimSpace(raw))
		}
		lo, hi, err := parseDepths(strings.TrimSpace(lhs), next)
		if err != nil {
			return Plan{}, fmt.Errorf("entry %d: %w", i, err)
		}
		spec, err := ParseSpec(rhs)
		if err != nil {
			return Plan{}, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, Entry{Lo: lo, Hi: hi, Spec: spec})
		next = hi + 1
	}
	return Of(entries...)
}

// ParseSpec reads a single layer spec such as "btree(64)" or "pgm(8)".
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	name, rest, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return Spec{}, fmt.Errorf("%w: malformed layer %q", ErrInvalid, s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(rest, ")")))
	if err != nil {
		return Spec{}, fmt.Errorf("%w: layer parameter in %q: %w", ErrInvalid, s, err)
	}
	kind, err := ParseKind(name)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Kind: kind, Param: n}, nil
}

// ParseKind resolves a layer kind name.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "btree":
		return KindBTree, nil
	case "pgm", "model":
		return KindModel, nil
	default:
		return KindInvalid, fmt.Errorf("%w: unknown layer kind %q", ErrInvalid, name)
	}
}

func parseDepths(s string, next int) (lo, hi int, err error) {
	if s == "_" {
		return next, Unbounded, nil
	}
	if a, b, ok := strings.Cut(s, ".."); ok {
		if lo, err = parseDepth(a); err != nil {
			return 0, 0, err
		}
		if strings.TrimSpace(b) == "" {
			return lo, Unbounded, nil
		}
		if hi, err = parseDepth(b); err != nil {
			return 0, 0, err
		}
		return lo, hi, nil
	}
	lo, err = parseDepth(s)
	return lo, lo, err
}

func parseDepth(s string) (int, error) {
	d, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: invalid depth %q", ErrInvalid, s)
	}
	return d, nil
}
