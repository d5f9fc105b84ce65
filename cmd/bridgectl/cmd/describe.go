package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/bridge"
)

func newDescribeCommand(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "describe [module...]",
		Short: "Describe the registered modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			ac, err := newAppContext(cmd.Context(), opts.config, opts.logger, nil)
			if err != nil {
				return err
			}
			defer func() { _ = ac.Destroy(cmd.Context()) }()

			descriptions := ac.Describe()
			if len(args) > 0 {
				descriptions = descriptions[:0]
				for _, name := range args {
					h, err := ac.Module(name)
					if err != nil {
						return err
					}
					descriptions = append(descriptions, h.Definition().Describe())
				}
			}
			return writeDescriptions(cmd, descriptions, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format (yaml or json)")
	return cmd
}

func writeDescriptions(cmd *cobra.Command, descriptions []bridge.Description, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(descriptions)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(descriptions)
	default:
		return fmt.Errorf("%w: %q", bridge.ErrUnsupportedFormat, format)
	}
}
