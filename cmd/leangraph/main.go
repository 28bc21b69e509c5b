package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"leangraph/internal/config"
	"leangraph/internal/index"
	"leangraph/internal/store"
)

var (
	// Global flags
	storeDir     string
	criteriaFile string
	verbose      bool

	logger *slog.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "leangraph",
	Short: "leangraph - dependency graphs over Lean declaration corpora",
	Long: `leangraph ingests declaration record streams emitted by the Lean
introspection script, indexes them, and answers dependency questions:
lookups, ancestor components, topological order, prune-to-foundations
and graph exports (GEXF, DOT, JSONL).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDir, "store", "./data", "pebble store directory")
	rootCmd.PersistentFlags().StringVar(&criteriaFile, "criteria", "", "YAML prune criteria file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(componentCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the pebble store named by --store.
func openStore() (store.KV, error) {
	kv, err := store.OpenPebble(storeDir, store.PebbleOptions{})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", storeDir, err)
	}
	return kv, nil
}

// restoreIndex opens the store and restores the persisted index.
func restoreIndex() (*index.LibraryIndex, store.KV, error) {
	kv, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	ix, err := index.Restore(kv)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	return ix, kv, nil
}

// gatherCriteria merges the --criteria file with per-command flags.
func gatherCriteria(fileSubstrings, namePrefixes, names []string) (index.Criteria, error) {
	crit, err := config.LoadCriteria(criteriaFile)
	if err != nil {
		return index.Criteria{}, err
	}
	crit.FileSubstrings = append(crit.FileSubstrings, fileSubstrings...)
	crit.NamePrefixes = append(crit.NamePrefixes, namePrefixes...)
	crit.Names = append(crit.Names, names...)
	return crit, nil
}

// defaultLabel derives a corpus label from an input filename.
func defaultLabel(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if name == "" || name == "." {
		name = "corpus"
	}
	return name
}
