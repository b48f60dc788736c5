// Command strata builds, queries and inspects strata index files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "strata: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return flag.ErrHelp
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "build":
		return buildCmd(ctx, rest, stdout, stderr)
	case "get":
		return getCmd(ctx, rest, stdout, stderr)
	case "range":
		return rangeCmd(ctx, rest, stdout, stderr)
	case "inspect":
		return inspectCmd(ctx, rest, stdout, stderr)
	case "export":
		return exportCmd(ctx, rest, stdout, stderr)
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `strata - immutable layered key/value index

Usage:
  strata <command> [options]

Commands:
  build     Build an index from a record file or SQLite database
  get       Look up keys
  range     Print the entries of a closed key range
  inspect   Print the header and layer directory of an index
  export    Write the entries of a key range to a record file
  help      Show this help

Locations:
  ./data/idx.strata                  local file
  s3://bucket/prefix/idx.strata      Amazon S3 (default AWS credentials,
                                     STRATA_S3_ENDPOINT overrides the endpoint)
  minio://host:9000/bucket/idx.strata
                                     MinIO (MINIO_ACCESS_KEY, MINIO_SECRET_KEY,
                                     MINIO_SECURE, MINIO_REGION)

Examples:
  strata build -in records.tsv.zst -plan "0 => pgm(16), _ => btree(64)" -out idx.strata
  strata build -in app.db -query "SELECT id, name FROM users" -sort -out s3://bucket/users.strata
  strata get -index idx.strata 42 1337
  strata range -index idx.strata -lo 100 -hi 200
  strata export -index idx.strata -out dump.tsv.lz4`)
}
