package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/typicalmohit/tinku-ji/internal/cli"
	"github.com/typicalmohit/tinku-ji/internal/version"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "dist/man", "output directory for generated man pages")
	flag.Parse()

	err := cli.GenerateManPages(outDir, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tinkuji-man: %v\n", err)
		os.Exit(1)
	}
}
