package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conveyorci/conveyor/internal/engine/template"
)

var templateDir string

// templateCmd validates pipeline templates without starting the engine.
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "validate pipeline templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := template.NewRegistry()
		if err := registry.LoadDir(templateDir); err != nil {
			return err
		}
		for _, name := range registry.Names() {
			fmt.Printf("ok: %s\n", name)
		}
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateDir, "dir", "d", "conf.d/templates", "template directory")
}
