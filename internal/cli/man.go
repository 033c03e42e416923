package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// GenerateManPages writes one section 1 page per command into outDir. Pages
// are dated from the build time and carry no generation stamp, so the same
// build always renders the same files.
func GenerateManPages(outDir string, build BuildInfo) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("man pages: create %s: %w", outDir, err)
	}

	root := NewRootCommand(io.Discard, build)
	disableAutoGenTag(root)

	header := &doc.GenManHeader{
		Title:   "TINKUJI",
		Section: "1",
		Source:  "tinkuji " + build.Version,
		Manual:  "tinku-ji bookings and documents",
	}
	if built, err := time.Parse(time.RFC3339, build.BuildTime); err == nil {
		header.Date = &built
	}

	if err := doc.GenManTree(root, header, outDir); err != nil {
		return fmt.Errorf("man pages: render: %w", err)
	}
	return nil
}

func disableAutoGenTag(cmd *cobra.Command) {
	cmd.DisableAutoGenTag = true
	for _, sub := range cmd.Commands() {
		disableAutoGenTag(sub)
	}
}
