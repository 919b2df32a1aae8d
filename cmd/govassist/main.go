// Command govassist serves the Kerala government services assistant and
// builds its retrieval indexes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string
	cmd := &cobra.Command{
		Use:           "govassist",
		Short:         "Kerala government services assistant",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file (default ./config.yaml or ./configs/config.yaml)")
	cmd.AddCommand(newServeCommand(&configFile))
	cmd.AddCommand(newIndexCommand(&configFile))
	return cmd
}
