package cmd

import (
	"github.com/spf13/cobra"

	"github.com/CraigKelly/hmc2d/model"
)

var densitiesCmd = &cobra.Command{
	Use:   "densities",
	Short: "List the built-in target densities",
	RunE: func(cmd *cobra.Command, args []string) error {
		sp, err := newStartupParams(cmd)
		if err != nil {
			return err
		}
		defer sp.Close()

		for _, name := range model.Names() {
			sp.out.Println(name)
		}
		return nil
	},
}
