package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agcodex/internal/index"
	"agcodex/internal/index/persist"
	"agcodex/internal/parser"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build, query, and snapshot the code index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Index the workspace and save a symbol snapshot",
	RunE:  runIndexBuild,
}

var indexSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Run a cascading search against the workspace index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndexSearch,
}

func init() {
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexSearchCmd)
}

// skipDirs are never indexed.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".agcodex": true,
}

func indexWorkspace(ctx context.Context, a *app) (int, error) {
	indexed := 0
	err := filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.LanguageForFile(path); !ok {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil // unreadable files are skipped, not fatal
		}
		if err := a.index.AddFile(ctx, path, content); err != nil {
			return nil
		}
		indexed++
		return nil
	})
	return indexed, err
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	start := time.Now()
	indexed, err := indexWorkspace(ctx, a)
	if err != nil {
		return err
	}

	snapshotPath := filepath.Join(workspace, a.cfg.Index.SymbolSnapshot)
	if err := os.MkdirAll(filepath.Dir(snapshotPath), 0o755); err != nil {
		return err
	}
	store, err := persist.Open(snapshotPath)
	if err != nil {
		return err
	}
	defer store.Close()

	symbols := a.index.Symbols().Export()
	if err := store.Save(ctx, symbols); err != nil {
		return err
	}
	if err := store.SetMeta(ctx, "indexed_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d files, %d symbols in %v\n",
		indexed, len(symbols), time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", snapshotPath)
	return nil
}

func runIndexSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()

	// Warm start from the snapshot when one exists, then index the
	// live tree for the full-text and AST layers.
	snapshotPath := filepath.Join(workspace, a.cfg.Index.SymbolSnapshot)
	if _, statErr := os.Stat(snapshotPath); statErr == nil {
		store, err := persist.Open(snapshotPath)
		if err == nil {
			if n, err := store.Restore(ctx, a.index.Symbols()); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "restored %d symbols from snapshot\n", n)
			}
			store.Close()
		}
	}
	if _, err := indexWorkspace(ctx, a); err != nil {
		return err
	}

	res, err := a.index.Search(ctx, index.SearchQuery{
		Term:       args[0],
		Layers:     index.AllLayers(),
		MaxResults: 20,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d hits (answered by %s layer)\n", len(res.Hits), res.Layer)
	for _, hit := range res.Hits {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-30s %s:%d (%.2f)\n",
			hit.Name, hit.File, hit.Line, hit.Score)
	}
	var timings []string
	for _, lt := range res.Timings {
		timings = append(timings, fmt.Sprintf("%s=%v/%d", lt.Layer, lt.Elapsed.Round(time.Microsecond), lt.Hits))
	}
	if len(timings) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "layers: %s\n", strings.Join(timings, " "))
	}
	return nil
}
