package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/happyhackingspace/lf/internal/modelstore"
)

func (c *CLI) newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "info <model>",
		Short:   "Print the info record of a model",
		Args:    cobra.ExactArgs(1),
		Example: `  lf info model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := modelstore.NewStore(args[0]).GetInfo()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(info)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
