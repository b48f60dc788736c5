package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML representation of a plan.
//
// Either Layout holds a plan in the layout grammar, or Layers lists one entry
// per depth range:
//
//	layers:
//	  - depth: "0"
//	    kind: btree
//	    param: 64
//	  - depth: "_"
//	    kind: pgm
//	    param: 8
type File struct {
	Layout string      `yaml:"layout,omitempty"`
	Layers []FileLayer `yaml:"layers,omitempty"`
}

// FileLayer is one depth range of a YAML plan.
type FileLayer struct {
	Depth string `yaml:"depth"` // "2", "1..3", "4.." or "_"
	Kind  string `yaml:"kind"`
	Param int    `yaml:"param"`
}

// LoadFile reads a YAML plan from path.
func LoadFile(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, err
	}
	return Unmarshal(data)
}

// Unmarshal decodes a YAML plan document.
func Unmarshal(data []byte) (Plan, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return f.Plan()
}

// Plan resolves the file into a validated Plan.
func (f File) Plan() (Plan, error) {
	if f.Layout != "" {
		if len(f.Layers) > 0 {
			return Plan{}, fmt.Errorf("%w: layout and layers are mutually exclusive", ErrInvalid)
		}
		return Parse(f.Layout)
	}
	entries := make([]Entry, 0, len(f.Layers))
	next := 0
	for i, l := range f.Layers {
		depth := l.Depth
		if depth == "" {
			depth = "_"
		}
		lo, hi, err := parseDepths(depth, next)
		if err != nil {
			return Plan{}, fmt.Errorf("layer %d: %w", i, err)
		}
		kind, err := ParseKind(l.Kind)
		if err != nil {
			return Plan{}, fmt.Errorf("layer %d: %w", i, err)
		}
		entries = append(entries, Entry{Lo: lo, Hi: hi, Spec: Spec{Kind: kind, Param: l.Param}})
		next = hi + 1
	}
	return Of(entries...)
}

// MarshalYAML encodes p using the layout grammar.
func (p Plan) MarshalYAML() (any, error) {
	return File{Layout: p.String()}, nil
}
