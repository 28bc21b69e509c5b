package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"leangraph/internal/depgraph"
	"leangraph/internal/export"
	"leangraph/internal/stats"
)

var (
	pruneFoundations    bool
	pruneFileSubstrings []string
	pruneNamePrefixes   []string
	pruneNames          []string

	componentFormat string
	exportFormat    string
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [name]",
	Short: "Print one declaration as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runLookup,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove matching declarations and persist the reduced index",
	RunE:  runPrune,
}

var componentCmd = &cobra.Command{
	Use:   "component [name]",
	Short: "Print the ancestor component of a declaration",
	Args:  cobra.ExactArgs(1),
	RunE:  runComponent,
}

var exportCmd = &cobra.Command{
	Use:   "export [out-file]",
	Short: "Write the dependency graph to a file (GEXF, DOT or JSONL)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print corpus statistics as JSON",
	RunE:  runStats,
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneFoundations, "foundations", false, "also prune the canonical foundation names")
	pruneCmd.Flags().StringArrayVar(&pruneFileSubstrings, "file-substring", nil, "prune declarations whose file contains this substring (repeatable)")
	pruneCmd.Flags().StringArrayVar(&pruneNamePrefixes, "name-prefix", nil, "prune declarations whose name starts with this prefix (repeatable)")
	pruneCmd.Flags().StringArrayVar(&pruneNames, "name", nil, "prune this exact name (repeatable)")

	componentCmd.Flags().StringVar(&componentFormat, "format", "", "emit the component as gexf, dot or jsonl instead of names")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "export format (default: by file extension)")
}

func runLookup(cmd *cobra.Command, args []string) error {
	ix, kv, err := restoreIndex()
	if err != nil {
		return err
	}
	defer kv.Close()

	d, err := ix.Lookup(args[0])
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	crit, err := gatherCriteria(pruneFileSubstrings, pruneNamePrefixes, pruneNames)
	if err != nil {
		return err
	}
	if pruneFoundations {
		defaults := depgraph.DefaultFoundations()
		crit.Names = append(crit.Names, defaults.Names...)
	}

	ix, kv, err := restoreIndex()
	if err != nil {
		return err
	}
	defer kv.Close()

	before := ix.Len()
	pruned := ix.Prune(crit)
	if err := pruned.Dump(kv); err != nil {
		return fmt.Errorf("persist pruned index: %w", err)
	}

	fmt.Printf("pruned %d declarations, %d remain\n", before-pruned.Len(), pruned.Len())
	return nil
}

func runComponent(cmd *cobra.Command, args []string) error {
	ix, kv, err := restoreIndex()
	if err != nil {
		return err
	}
	defer kv.Close()

	g, err := depgraph.Build(ix)
	if err != nil {
		return err
	}
	sub, err := g.ComponentOf(args[0])
	if err != nil {
		return err
	}

	if componentFormat != "" {
		exp, err := export.ForFormat(componentFormat)
		if err != nil {
			return err
		}
		return exp.Export(os.Stdout, sub)
	}

	for _, name := range sub.NodeNames() {
		fmt.Println(name)
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ix, kv, err := restoreIndex()
	if err != nil {
		return err
	}
	defer kv.Close()

	g, err := depgraph.Build(ix)
	if err != nil {
		return err
	}

	var exp export.Exporter
	if exportFormat != "" {
		exp, err = export.ForFormat(exportFormat)
	} else {
		exp, err = export.ForFile(args[0])
	}
	if err != nil {
		return err
	}

	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	if err := exp.Export(f, g); err != nil {
		return err
	}
	fmt.Printf("wrote %d nodes and %d edges to %s\n", g.Len(), g.EdgeCount(), args[0])
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ix, kv, err := restoreIndex()
	if err != nil {
		return err
	}
	defer kv.Close()

	g, err := depgraph.Build(ix)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(stats.Corpus(ix, g), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
