// Package layer implements the two layer kinds of a hybrid index and their
// resident and on-disk representations.
//
// A layer is a sequence of nodes. Nodes of the base layer (depth 0) hold keys
// and values; nodes of interior layers hold keys and references to nodes of the
// layer beneath. A reference is the byte offset of the child node relative to
// the start of its layer, so layers never point at each other in memory.
//
// Encoded node layouts (little-endian):
//
//	btree  key_count u16 | keys | payload
//	model  slope f64 | intercept f64 | epsilon u32 | item_count u32 | keys | payload
//
//	payload (interior)  child u64 * count
//	payload (base)      [ len u32 | bytes ] * count
package layer
