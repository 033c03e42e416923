package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/typicalmohit/tinku-ji/internal/storage"
)

// versionReport adds the schema version this binary migrates to, so a
// support request can tell whether a database predates the build.
type versionReport struct {
	BuildInfo
	SchemaVersion int    `json:"schema_version"`
	GoVersion     string `json:"go_version"`
}

func newVersionCommand(deps commandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build and the database schema it targets",
		Example: "  tinkuji version\n" +
			"  tinkuji --json version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 {
				return usageErrorf("version takes no arguments")
			}
			report := versionReport{
				BuildInfo:     deps.build,
				SchemaVersion: storage.CurrentSchemaVersion(),
				GoVersion:     runtime.Version(),
			}
			if deps.globals.JSON {
				return mapCommandError(printJSON(deps.out, report))
			}
			_, err := fmt.Fprintf(deps.out, "tinkuji %s (commit=%s built=%s) schema=%d %s\n",
				report.Version, report.Commit, report.BuildTime, report.SchemaVersion, report.GoVersion)
			return mapCommandError(err)
		},
	}
}
