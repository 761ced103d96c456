package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"phagebox/host/pcr"
	"phagebox/host/profile"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <profile.yaml>",
	Short: "Run a PCR profile and record it",
	Long: `Loads a run profile, starts each zone it names and records samples
until every zone has finished. Interrupting the run stops the zones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cmd)
		if err != nil {
			return err
		}

		prof, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		for zone, holds := range prof.Skipped {
			log.Warn("protocol holds outside the cycle are not run", "zone", zone, "holds", len(holds))
		}

		device, baud := prof.Port, prof.Baud
		if device == "" || cmd.Flags().Changed("device") {
			device, _ = cmd.Flags().GetString("device")
		}
		if cmd.Flags().Changed("baud") {
			baud, _ = cmd.Flags().GetInt("baud")
		}
		if !cmd.Flags().Changed("ack-timeout") {
			cmd.Flags().Set("ack-timeout", prof.AckTimeout.String())
		}
		if cal := prof.Calibration; cal != (pcr.Calibration{}) && !cmd.Flags().Changed("slope") && !cmd.Flags().Changed("intercept") {
			cmd.Flags().Set("slope", strconv.FormatFloat(cal.Slope, 'g', -1, 64))
			cmd.Flags().Set("intercept", strconv.FormatFloat(cal.Intercept, 'g', -1, 64))
		}

		rec, err := newRecorder(cmd.Context(), recordFlags(cmd, recordOptions{
			CSV:    prof.CSV,
			Redis:  prof.Redis,
			Listen: prof.Listen,
		}), log)
		if err != nil {
			return err
		}
		defer rec.Close()

		client, err := dialDevice(cmd.Context(), cmd, device, baud, log)
		if err != nil {
			return err
		}
		defer client.Close()

		var started []pcr.Zone
		for _, zone := range pcr.Zones {
			prog, ok := prof.Programs[zone]
			if !ok {
				continue
			}
			if err := client.StartZone(cmd.Context(), zone, prog); err != nil {
				stopAfterRun(client, started, log)
				return err
			}
			started = append(started, zone)
		}

		grace, _ := cmd.Flags().GetDuration("grace")
		follow, _ := cmd.Flags().GetBool("follow")
		ctx := cmd.Context()
		if !follow {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, prof.Duration()+grace)
			defer cancel()
		}
		log.Info("running", "zones", len(started), "duration", prof.Duration())

		err = rec.run(ctx, client, log)
		if cmd.Context().Err() != nil {
			log.Info("interrupted, stopping zones")
			stopAfterRun(client, started, log)
		}
		if dropped := client.Dropped(); dropped > 0 {
			log.Warn("samples dropped", "count", dropped)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRecordFlags(runCmd)

	runCmd.Flags().Duration("grace", 10*time.Second, "Keep recording this long after the nominal end")
	runCmd.Flags().Bool("follow", false, "Keep recording until interrupted")
}

// stopAfterRun stops zones with a fresh context since the command's may
// already be cancelled
func stopAfterRun(client *pcr.Client, zones []pcr.Zone, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stopZones(ctx, client, zones); err != nil {
		log.Warn("stop zones", "err", err)
	}
}
