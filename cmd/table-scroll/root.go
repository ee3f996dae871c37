package main

import (
	"github.com/spf13/cobra"
)

// newRootCommand creates the viewer command and its subcommands.
func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "table-scroll <view-url>",
		Short: "Browse a table view with infinite scroll",
		Long: `Browse a table view in the terminal. Rows are fetched page by page
from /view/<keyspace>/<table> as you scroll towards the bottom.

Keys: j/k or arrows scroll, pgup/pgdown page, g/G jump, +/- change the
page size, r reloads, q quits.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file path")
	addFlags(flags)

	v, err := newViper(flags)
	if err != nil {
		// Binding fails only for a nil flag set.
		panic(err)
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return readConfigFile(v, configFile)
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(v)
		if err != nil {
			return err
		}
		return runViewer(cmd.Context(), opts, args[0])
	}

	cmd.AddCommand(newDumpCommand(v))

	return cmd
}

