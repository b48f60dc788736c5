// Package format encodes the fixed parts of an index file.
//
// All integers are little-endian.
//
//	Header    magic(4) | version u32 | key_tag u8 | value_tag u8 | layer_count u32
//	Layer i   node_count u32 | nodes...
//	Directory [ kind u8 | param u32 | offset u64 | length u64 | node_count u32 ] * layer_count
//	Footer    directory_offset u64
//
// Layers are stored base first. Directory offsets are absolute file offsets.
package format
