// internal/cli/show_config.go
package ragqa

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/ragqa/internal/appconfig"
)

var showConfigFormat string

// showConfigCmd prints the merged configuration.
var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the config file is loaded properly and overridden by flags accordingly.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		switch showConfigFormat {
		case "", "text":
			appconfig.ShowConfig(out, viper.ConfigFileUsed(), cfg)
		case "yaml":
			data, err := appconfig.MarshalYAML(*cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(out, string(data))
		case "pp":
			_, _ = pp.Fprintln(out, *cfg)
		default:
			return fmt.Errorf("unknown format %q (want text, yaml or pp)", showConfigFormat)
		}
		return nil
	},
}

func init() {
	showConfigCmd.Flags().StringVar(&showConfigFormat, "format", "text", "output format: text, yaml or pp")
	showCmd.AddCommand(showConfigCmd)
}
