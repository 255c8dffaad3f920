package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/surveyeval/qscore/internal/cache"
)

const defaultCacheDir = ".qscore-cache"

var cacheDir string

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the model reply cache",
		Long: `Manage the model reply cache.

With "eval --cache", replies are stored keyed by provider, model, token limit
and the full prompt, so rerunning an unchanged prompt over the same documents
costs nothing. Changing the prompt template changes every key.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached model reply",
		Long: `Delete every cached model reply.

The directory defaults to QSCORE_CACHE_DIR, or .qscore-cache when unset. A
directory holding anything other than cache entries is left untouched.`,
		Args: cobra.NoArgs,
		RunE: cacheClearE,
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory to clear")

	return cmd
}

func cacheClearE(cmd *cobra.Command, _ []string) error {
	dir := cacheDir
	if dir == "" {
		dir = os.Getenv("QSCORE_CACHE_DIR")
	}
	if dir == "" {
		dir = defaultCacheDir
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving cache directory: %w", err)
	}

	c := cache.New(absDir)
	n, err := c.Len()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s (%d entries)\n", absDir, n)
	return nil
}
