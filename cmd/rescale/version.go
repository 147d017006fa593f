package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rescale version %s, built at %s\n", version, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
