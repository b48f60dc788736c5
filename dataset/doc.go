// Package dataset reads and writes the record files consumed and produced by
// the strata command line tool.
//
// A record file holds one entry per line, the key and the value separated by a
// single tab. Tabs, newlines, carriage returns and backslashes inside values
// are escaped with a backslash. Files ending in .zst are zstd compressed and
// files ending in .lz4 are lz4 framed; anything else is plain text.
//
// Records may also be imported from a SQLite database with FromSQLite. Input
// that is not already sorted can be staged in a Sorter, which orders entries
// by key and keeps the last value written for a duplicate key.
package dataset
