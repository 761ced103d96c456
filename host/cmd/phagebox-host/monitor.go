package main

import (
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Record zone temperatures without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}

		opts := recordFlags(cmd, recordOptions{CSV: "-"})
		rec, err := newRecorder(cmd.Context(), opts, log)
		if err != nil {
			return err
		}
		defer rec.Close()

		client, err := dial(cmd.Context(), cmd, log)
		if err != nil {
			return err
		}
		defer client.Close()

		return rec.run(cmd.Context(), client, log)
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addRecordFlags(monitorCmd)
}
