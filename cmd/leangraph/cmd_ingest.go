package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"leangraph/internal/decl"
	"leangraph/internal/depgraph"
	"leangraph/internal/index"
	"leangraph/internal/introspect"
	"leangraph/internal/record"
)

var (
	ingestLabel     string
	ingestAggregate bool

	crawlLeanBin  string
	crawlTimeout  time.Duration
	crawlMemoryMB int
)

// ingestCmd parses an already-emitted record stream into the store.
var ingestCmd = &cobra.Command{
	Use:   "ingest [stream-file]",
	Short: "Parse a record stream, index it and persist the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

// crawlCmd runs the introspection binary first, then ingests.
var crawlCmd = &cobra.Command{
	Use:   "crawl [module]",
	Short: "Introspect a Lean module with the prover, then ingest",
	Args:  cobra.ExactArgs(1),
	RunE:  runCrawl,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestLabel, "label", "", "corpus label (default: stream filename)")
	ingestCmd.Flags().BoolVar(&ingestAggregate, "aggregate-constructors", false, "fold constructor uses and sizes into their parents")

	crawlCmd.Flags().StringVar(&ingestLabel, "label", "", "corpus label (default: module name)")
	crawlCmd.Flags().BoolVar(&ingestAggregate, "aggregate-constructors", false, "fold constructor uses and sizes into their parents")
	crawlCmd.Flags().StringVar(&crawlLeanBin, "lean-bin", "lean", "introspection binary")
	crawlCmd.Flags().DurationVar(&crawlTimeout, "timeout", 10*time.Minute, "introspection deadline")
	crawlCmd.Flags().IntVar(&crawlMemoryMB, "memory-mb", 4096, "introspection memory cap in MB")
}

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := record.ReadAll(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	label := ingestLabel
	if label == "" {
		label = defaultLabel(args[0])
	}
	return ingestRecords(label, recs)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	module := args[0]
	runner := introspect.NewRunner(crawlLeanBin, crawlTimeout, crawlMemoryMB)

	logger.Info("introspecting", "module", module, "bin", crawlLeanBin)
	recs, err := runner.Run(ctx, []string{module})
	if err != nil {
		return fmt.Errorf("introspect %s: %w", module, err)
	}

	label := ingestLabel
	if label == "" {
		label = module
	}
	return ingestRecords(label, recs)
}

// ingestRecords builds declarations, seals the index and persists it.
func ingestRecords(label string, recs []*record.Record) error {
	ds := make([]*decl.Declaration, len(recs))
	for i, rec := range recs {
		d, err := decl.Build(rec)
		if err != nil {
			return err
		}
		ds[i] = d
	}

	var opts []index.IngestOption
	if ingestAggregate {
		opts = append(opts, index.WithConstructorAggregation())
	}
	ix, err := index.FromDeclarations(label, ds, opts...)
	if err != nil {
		return err
	}

	// Validate the corpus before it replaces the persisted dump; a
	// cyclic corpus would otherwise fail every later graph command and
	// the serve boot restore.
	g, err := depgraph.Build(ix)
	if err != nil {
		return fmt.Errorf("validate dependency graph: %w", err)
	}

	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	if err := ix.Dump(kv); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	fmt.Printf("ingested %d records as %d declarations under label %q (%d nodes, %d edges)\n",
		len(recs), ix.Len(), label, g.Len(), g.EdgeCount())
	return nil
}
