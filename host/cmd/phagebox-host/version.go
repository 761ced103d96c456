package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phagebox/protocol"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the protocol version this tool speaks",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "phagebox-host version %s\n", protocol.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
