package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"phagebox/host/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serial.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
			return nil
		}
		for _, p := range ports {
			if p.Description != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", p.Name, p.Description)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), p.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
