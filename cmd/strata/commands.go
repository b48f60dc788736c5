package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"

	"github.com/hupe1980/strata"
	"github.com/hupe1980/strata/dataset"
	"github.com/hupe1980/strata/model"
	"github.com/hupe1980/strata/plan"
)

const defaultPlan = "0 => pgm(16), _ => btree(64)"

// commonFlags are shared by every command.
type commonFlags struct {
	logLevel string
	logJSON  bool
	memoryMB int64
	ioMBps   int64
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	fs.BoolVar(&c.logJSON, "log-json", false, "Log as JSON")
	fs.Int64Var(&c.memoryMB, "memory-mb", 0, "Memory budget for resident layers in MiB (0 = unlimited)")
	fs.Int64Var(&c.ioMBps, "io-mbps", 0, "IO rate limit in MiB/s (0 = unlimited)")
}

func (c *commonFlags) options(stderr io.Writer) ([]strata.Option, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.logLevel)); err != nil {
		return nil, fmt.Errorf("-log-level: %w", err)
	}
	hopts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(stderr, hopts)
	if c.logJSON {
		handler = slog.NewJSONHandler(stderr, hopts)
	}

	opts := []strata.Option{strata.WithLogger(strata.NewLogger(handler))}
	if c.memoryMB > 0 || c.ioMBps > 0 {
		opts = append(opts, strata.WithResourceController(strata.NewResourceController(strata.ResourceConfig{
			MemoryLimitBytes:     c.memoryMB << 20,
			IOLimitBytesPerSec:   c.ioMBps << 20,
			MaxBackgroundWorkers: 4,
		})))
	}
	return opts, nil
}

// readFlags configure opening an existing index.
type readFlags struct {
	commonFlags
	index    string
	resident int
	cacheMB  int64
}

func (r *readFlags) register(fs *flag.FlagSet) {
	r.commonFlags.register(fs)
	fs.StringVar(&r.index, "index", "", "Index location (required)")
	fs.IntVar(&r.resident, "resident", strata.ResidentAll, "Number of top layers to load into memory (-1 = all)")
	fs.Int64Var(&r.cacheMB, "cache-mb", 64, "Block cache for remote indexes in MiB (0 = off)")
}

func (r *readFlags) open(ctx context.Context, stderr io.Writer) (reader, error) {
	if r.index == "" {
		return nil, errors.New("-index is required")
	}
	opts, err := r.options(stderr)
	if err != nil {
		return nil, err
	}
	loc, err := parseLocation(ctx, r.index, r.cacheMB<<20)
	if err != nil {
		return nil, err
	}
	info, err := inspectLocation(ctx, loc)
	if err != nil {
		return nil, err
	}
	ops, err := opsFor(model.KeyTag(info.KeyTag))
	if err != nil {
		return nil, err
	}
	return ops.open(ctx, loc, r.resident, info.ValueTag, opts)
}

func inspectLocation(ctx context.Context, loc location) (*strata.FileInfo, error) {
	blob, err := loc.store.Open(ctx, loc.name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc.name, err)
	}
	defer blob.Close()
	return strata.Inspect(ctx, blob)
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func buildCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("build", stderr)
	var common commonFlags
	common.register(fs)
	in := fs.String("in", "", "Input record file (.tsv, .zst, .lz4) or SQLite database (.db, .sqlite) (required)")
	query := fs.String("query", "", "SQLite query yielding key and value columns (default: "+dataset.DefaultQuery+")")
	out := fs.String("out", "", "Output location (required)")
	keyType := fs.String("key", "int64", "Key type (int32, int64, uint32, uint64, float64)")
	valueCodec := fs.String("value", "string", "Value codec (string, bytes, uint64, int64, json)")
	planText := fs.String("plan", defaultPlan, "Layer plan or path to a YAML plan file")
	sortInput := fs.Bool("sort", false, "Sort the input and keep the last value of duplicate keys")
	parallel := fs.Int("parallel", 1, "Chunks built concurrently per layer")
	maxDepth := fs.Int("max-depth", strata.DefaultMaxDepth, "Maximum number of layers")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *out == "" {
		return errors.New("-in and -out are required")
	}

	ktag, err := keyTag(*keyType)
	if err != nil {
		return err
	}
	vtag, err := valueTag(*valueCodec)
	if err != nil {
		return err
	}
	p, err := loadPlan(*planText)
	if err != nil {
		return err
	}
	opts, err := common.options(stderr)
	if err != nil {
		return err
	}
	loc, err := parseLocation(ctx, *out, 0)
	if err != nil {
		return err
	}
	ops, err := opsFor(ktag)
	if err != nil {
		return err
	}

	sum, err := ops.build(ctx, buildConfig{
		in:       *in,
		query:    *query,
		sort:     *sortInput,
		plan:     p,
		valueTag: vtag,
		out:      loc,
		opts:     append(opts, strata.WithBuildParallelism(*parallel), strata.WithMaxDepth(*maxDepth)),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "built %s: %d entries, %d layers", *out, sum.entries, len(sum.stats.Layers))
	if sum.replaced > 0 {
		fmt.Fprintf(stdout, ", %d duplicates replaced", sum.replaced)
	}
	fmt.Fprintln(stdout)
	return printStats(stdout, sum.stats)
}

// loadPlan reads a YAML plan file or parses the layout grammar.
func loadPlan(s string) (plan.Plan, error) {
	switch strings.ToLower(filepath.Ext(s)) {
	case ".yaml", ".yml":
		if _, err := os.Stat(s); err == nil {
			return plan.LoadFile(s)
		}
	}
	return plan.Parse(s)
}

func getCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("get", stderr)
	var rf readFlags
	rf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no keys given")
	}

	r, err := rf.open(ctx, stderr)
	if err != nil {
		return err
	}
	defer r.close()

	missing, err := r.get(ctx, fs.Args(), stdout)
	if err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d keys not found", missing, fs.NArg())
	}
	return nil
}

func rangeCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("range", stderr)
	var rf readFlags
	rf.register(fs)
	lo := fs.String("lo", "", "Lower bound, inclusive (default: smallest key)")
	hi := fs.String("hi", "", "Upper bound, inclusive (default: largest key)")
	limit := fs.Int("limit", 0, "Maximum number of entries (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	r, err := rf.open(ctx, stderr)
	if err != nil {
		return err
	}
	defer r.close()

	_, err = r.scan(ctx, *lo, *hi, *limit, stdout)
	return err
}

func exportCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	var rf readFlags
	rf.register(fs)
	out := fs.String("out", "", "Output record file, compressed by extension (.zst, .lz4) (required)")
	lo := fs.String("lo", "", "Lower bound, inclusive (default: smallest key)")
	hi := fs.String("hi", "", "Upper bound, inclusive (default: largest key)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("-out is required")
	}

	r, err := rf.open(ctx, stderr)
	if err != nil {
		return err
	}
	defer r.close()

	wc, err := dataset.CreateFile(*out)
	if err != nil {
		return err
	}
	n, err := r.scan(ctx, *lo, *hi, 0, wc)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(*out)
		return err
	}

	fmt.Fprintf(stdout, "exported %d entries to %s (%s)\n", n, *out, dataset.CompressionFor(*out))
	return nil
}

func inspectCmd(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("inspect", stderr)
	index := fs.String("index", "", "Index location (required)")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *index == "" {
		return errors.New("-index is required")
	}

	loc, err := parseLocation(ctx, *index, 0)
	if err != nil {
		return err
	}
	info, err := inspectLocation(ctx, loc)
	if err != nil {
		return err
	}

	if *asJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout, "%s\n", data)
		return err
	}

	fmt.Fprintf(stdout, "version %d, key %s, value %s, %d bytes\n", info.Version, info.KeyType, info.ValueCodec, info.Size)
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tKIND\tPARAM\tNODES\tOFFSET\tLENGTH")
	for _, l := range info.Layers {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%d\n", l.Depth, l.Kind, l.Param, l.Nodes, l.Offset, l.Length)
	}
	return tw.Flush()
}

func printStats(w io.Writer, s strata.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tKIND\tPARAM\tNODES\tBYTES")
	for _, l := range s.Layers {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\n", l.Depth, l.Kind, l.Param, l.Nodes, l.Bytes)
	}
	return tw.Flush()
}
