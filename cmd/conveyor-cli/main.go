package main

import (
	"github.com/spf13/cobra"

	"github.com/conveyorci/conveyor/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "conveyor-cli",
	Short: "conveyor cli is a command line tool",
	Long:  "conveyor cli is a command line tool",
	Run: func(cmd *cobra.Command, args []string) {
		err := cmd.Help()
		if err != nil {
			return
		}
	},
}

func init() {
	rootCmd.AddCommand(version.VersionCmd)
	rootCmd.AddCommand(templateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
