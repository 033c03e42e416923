package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/app"
	"github.com/typicalmohit/tinku-ji/internal/config"
	"github.com/typicalmohit/tinku-ji/internal/session"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

const defaultInitConfig = `[storage]
database_name = "tinkuji.db"

[files]
max_document_size_mb = 5
orphan_grace_period = "24h"

[auth]
argon2_memory_kib = 65536
argon2_iterations = 3

[logging]
level = "info"
format = "text"
file = ""
max_size_mb = 10
max_files = 5

[metrics]
enabled = false
`

func newInitCommand(deps commandDeps) *cobra.Command {
	var overwriteConfig bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database, file areas and a default config",
		Example: "  tinkuji init\n" +
			"  tinkuji --data-dir ./data init",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("init does not accept positional arguments")
			}

			configPath, err := config.ResolveConfigPath(commandLoadOptions(deps.globals))
			if err != nil {
				return mapCommandError(err)
			}
			if err := writeDefaultConfig(configPath, overwriteConfig); err != nil {
				return mapCommandError(err)
			}

			cfg, err := loadCommandConfig(deps)
			if err != nil {
				return mapCommandError(err)
			}
			version, err := app.Bootstrap(cmd.Context(), cfg.Storage.DataDir, cfg.Storage.DatabaseName)
			if err != nil {
				return mapCommandError(err)
			}

			if deps.globals.JSON {
				return printJSON(deps.out, map[string]any{
					"initialized":    true,
					"data_dir":       cfg.Storage.DataDir,
					"database_path":  cfg.DatabasePath(),
					"config_path":    configPath,
					"schema_version": version,
				})
			}
			if deps.globals.Quiet {
				return nil
			}
			if _, err := fmt.Fprintf(deps.out, "initialized data dir: %s (schema version %d)\n", cfg.Storage.DataDir, version); err != nil {
				return mapCommandError(err)
			}
			_, err = fmt.Fprintf(deps.out, "config: %s\n", configPath)
			return mapCommandError(err)
		},
	}
	cmd.Flags().BoolVar(&overwriteConfig, "overwrite-config", false, "Replace an existing config file with the defaults")
	return cmd
}

func writeDefaultConfig(path string, overwrite bool) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: config path is required", app.ErrValidation)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("init: create config directory: %w", err)
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("init: stat config path: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultInitConfig), 0o600); err != nil {
		return fmt.Errorf("init: write config: %w", err)
	}
	return nil
}

func newStatusCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show data directory, schema and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("status does not accept positional arguments")
			}
			return withRuntime(cmd.Context(), deps, func(ctx context.Context, env *runtimeEnv) error {
				version, err := env.store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				payload := map[string]any{
					"data_dir":       env.cfg.Storage.DataDir,
					"database_path":  env.cfg.DatabasePath(),
					"schema_version": version,
					"schema_latest":  storage.CurrentSchemaVersion(),
					"signed_in":      false,
				}
				if info, err := os.Stat(env.cfg.DatabasePath()); err == nil {
					payload["database_size"] = humanize.IBytes(uint64(info.Size()))
				}

				var overview session.Overview
				user, signedIn := env.session.Profile()
				if signedIn {
					overview, err = env.session.Overview(ctx)
					if err != nil {
						return err
					}
					payload["signed_in"] = true
					payload["email"] = user.Email
					payload["phones"] = overview.Phones
					payload["bookings"] = overview.Bookings
					payload["documents"] = overview.Documents
				}

				if deps.globals.JSON {
					return printJSON(deps.out, payload)
				}
				if deps.globals.Quiet {
					return nil
				}
				if _, err := fmt.Fprintf(deps.out, "data_dir=%s schema=%d/%d\n",
					env.cfg.Storage.DataDir, version, storage.CurrentSchemaVersion()); err != nil {
					return err
				}
				if !signedIn {
					_, err = fmt.Fprintln(deps.out, "session=signed-out")
					return err
				}
				_, err = fmt.Fprintf(deps.out, "session=%s phones=%d bookings=%d documents=%d\n",
					user.Email, overview.Phones, overview.Bookings, overview.Documents)
				return err
			})
		},
	}
}
