package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"phagebox/host/pcr"
)

var stopCmd = &cobra.Command{
	Use:       "stop [front|back|all]",
	Short:     "Stop heater zones",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"front", "back", "all"},
	RunE: func(cmd *cobra.Command, args []string) error {
		zones, err := parseZones(args)
		if err != nil {
			return err
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

		return stopZones(cmd.Context(), client, zones)
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

// parseZones reads an optional zone argument; no argument or "all" means
// every zone
func parseZones(args []string) ([]pcr.Zone, error) {
	if len(args) == 0 || args[0] == "all" {
		return pcr.Zones, nil
	}
	z, err := pcr.ParseZone(args[0])
	if err != nil {
		return nil, err
	}
	return []pcr.Zone{z}, nil
}

func stopZones(ctx context.Context, client *pcr.Client, zones []pcr.Zone) error {
	var errs []error
	for _, z := range zones {
		errs = append(errs, client.StopZone(ctx, z))
	}
	return errors.Join(errs...)
}
