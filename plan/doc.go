// Package plan describes which layer kind an index uses at each depth.
//
// A Plan is an ordered list of depth ranges. Depth 0 is the base layer holding
// the data; every higher depth indexes the layer beneath it. The last entry is
// always unbounded and acts as the fallback for all remaining depths.
//
// Plans can be assembled three ways:
//
//	// Fluent builder (immutable, every call returns a copy)
//	p, err := plan.New().
//	    At(0, plan.BTree(64)).
//	    Range(1, 2, plan.PGM(16)).
//	    Otherwise(plan.BTree(32)).
//	    Build()
//
//	// Layout grammar
//	p, err := plan.Parse("0 => btree(64), 1..2 => pgm(16), _ => btree(32)")
//
//	// YAML file
//	p, err := plan.LoadFile("layout.yaml")
package plan
