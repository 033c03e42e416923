package cli

import (
	"io"
	"time"

	"github.com/spf13/cobra"
)

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type GlobalOptions struct {
	JSON       bool
	Quiet      bool
	Verbose    bool
	Metrics    bool
	ConfigPath string
	DataDir    string
	Timeout    time.Duration
}

type commandDeps struct {
	out     io.Writer
	errOut  io.Writer
	build   BuildInfo
	globals *GlobalOptions
}

func NewRootCommand(out io.Writer, build BuildInfo) *cobra.Command {
	globals := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:           "tinkuji",
		Short:         "tinku-ji local data layer CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErrorf("%v", err)
	})

	flags := cmd.PersistentFlags()
	flags.BoolVar(&globals.JSON, "json", false, "Print machine-readable JSON")
	flags.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress non-essential output")
	flags.BoolVarP(&globals.Verbose, "verbose", "v", false, "Write logs to stderr")
	flags.BoolVar(&globals.Metrics, "metrics", false, "Print operation counters after the command")
	flags.StringVar(&globals.ConfigPath, "config", "", "Config file path")
	flags.StringVar(&globals.DataDir, "data-dir", "", "Data directory (database and stored files)")
	flags.DurationVar(&globals.Timeout, "timeout", 30*time.Second, "Command timeout")

	deps := commandDeps{out: out, errOut: out, build: build, globals: globals}
	cmd.AddCommand(
		newVersionCommand(deps),
		newInitCommand(deps),
		newStatusCommand(deps),
		newSignUpCommand(deps),
		newSignInCommand(deps),
		newSignOutCommand(deps),
		newWhoAmICommand(deps),
		newProfileCommand(deps),
		newPhoneCommand(deps),
		newBookingCommand(deps),
		newDocumentCommand(deps),
		newSweepCommand(deps),
		newDebugCommand(deps),
	)
	cmd.InitDefaultCompletionCmd()
	return cmd
}
