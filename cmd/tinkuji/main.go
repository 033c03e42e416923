package main

import (
	"errors"
	"os"

	"github.com/awnumar/memguard"

	"github.com/typicalmohit/tinku-ji/internal/cli"
	"github.com/typicalmohit/tinku-ji/internal/version"
)

func main() {
	memguard.CatchInterrupt()

	cmd := cli.NewRootCommand(os.Stdout, cli.BuildInfo{
		Version:   version.Version,
		Commit:    version.Commit,
		BuildTime: version.BuildTime,
	})
	err := cmd.Execute()
	memguard.Purge()
	if err != nil {
		_, _ = os.Stderr.WriteString("tinkuji: " + err.Error() + "\n")
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			os.Exit(withExitCode.ExitCode())
		}
		os.Exit(1)
	}
}
