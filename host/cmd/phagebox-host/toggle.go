package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle the magnet and/or LED",
	RunE: func(cmd *cobra.Command, args []string) error {
		magnet, _ := cmd.Flags().GetBool("magnet")
		led, _ := cmd.Flags().GetBool("led")
		if !magnet && !led {
			return errors.New("nothing to toggle: pass --magnet and/or --led")
		}

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		client, err := dial(cmd.Context(), cmd, log)
		if err != nil {
			return err
		}
		defer client.Close()

		return client.ToggleAux(cmd.Context(), magnet, led)
	},
}

func init() {
	rootCmd.AddCommand(toggleCmd)

	toggleCmd.Flags().Bool("magnet", false, "Toggle the magnet")
	toggleCmd.Flags().Bool("led", false, "Toggle the LED")
}
