package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/bridge"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var format string
	sample := &cobra.Command{
		Use:   "sample",
		Short: "Print a configuration file with every default filled in",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := bridge.SampleConfig(defaultConfig(), format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	sample.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml, toml or json)")
	cmd.AddCommand(sample)
	return cmd
}
