package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	debugpkg "github.com/typicalmohit/tinku-ji/internal/debug"
	"github.com/typicalmohit/tinku-ji/internal/filestore"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

func newDebugCommand(deps commandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "debug",
		Short:   "Diagnostics helpers",
		Example: "  tinkuji debug bundle --output ./tinkuji-debug.json",
	}
	cmd.AddCommand(newDebugBundleCommand(deps))
	return cmd
}

func newDebugBundleCommand(deps commandDeps) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Collect storage diagnostics into a JSON bundle",
		Example: "  tinkuji debug bundle --output ./tinkuji-debug.json\n" +
			"  tinkuji --json debug bundle --output ./tinkuji-debug.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("debug bundle does not accept positional arguments")
			}
			if strings.TrimSpace(outputPath) == "" {
				return usageErrorf("debug bundle requires --output")
			}

			cfg, err := loadCommandConfig(deps)
			if err != nil {
				return mapCommandError(err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			files, err := filestore.New(cfg.Storage.DataDir)
			if err != nil {
				return mapCommandError(err)
			}
			store, note := openStoreForDiagnostics(ctx, cfg.DatabasePath())
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			bundle := debugpkg.Collect(ctx, store, files)
			bundle.Version = map[string]any{
				"version":    deps.build.Version,
				"commit":     deps.build.Commit,
				"build_time": deps.build.BuildTime,
			}
			if note != "" {
				bundle.Notes = append(bundle.Notes, note)
			}

			if err := debugpkg.WriteBundle(outputPath, bundle); err != nil {
				return mapCommandError(err)
			}
			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{"output": outputPath, "healthy": bundle.Healthy()})
			}
			if deps.globals.Quiet {
				return nil
			}
			_, err = fmt.Fprintf(deps.out, "debug bundle written: %s\n", outputPath)
			return mapCommandError(err)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Output JSON bundle path")
	return cmd
}

// openStoreForDiagnostics opens an existing database without migrating it.
// The store is marked ready only when its schema is already current.
func openStoreForDiagnostics(ctx context.Context, path string) (*storage.Store, string) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Sprintf("database %s: %v", path, err)
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, err.Error()
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil || version != storage.CurrentSchemaVersion() {
		return store, ""
	}
	if err := store.Init(ctx); err != nil {
		return store, err.Error()
	}
	return store, ""
}
