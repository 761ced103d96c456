package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"phagebox/host/logging"
	"phagebox/host/pcr"
	"phagebox/host/serial"
)

var rootCmd = &cobra.Command{
	Use:          "phagebox-host",
	Short:        "Control a PhageBox thermal cycler",
	Long:         `phagebox-host programs the heater zones of a PhageBox, toggles its magnet and LED, and records zone temperatures.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("device", "d", "/dev/ttyACM0", "Serial device")
	rootCmd.PersistentFlags().IntP("baud", "b", 9600, "Baud rate (ignored for USB CDC)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("ack-timeout", pcr.DefaultAckTimeout, "Time to wait for each acknowledgement")
	rootCmd.PersistentFlags().Duration("ready-timeout", 5*time.Second, "Time to wait for the board to announce itself (0 skips)")
	rootCmd.PersistentFlags().Float64("slope", 1, "Chip temperature per block degree")
	rootCmd.PersistentFlags().Float64("intercept", 0, "Chip temperature at a block reading of zero")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	name, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(name)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// dial opens the device named by the flags. A board that was already
// running when the port opened has announced itself long ago, so a missing
// ready frame is only logged.
func dial(ctx context.Context, cmd *cobra.Command, log *slog.Logger) (*pcr.Client, error) {
	device, _ := cmd.Flags().GetString("device")
	baud, _ := cmd.Flags().GetInt("baud")
	return dialDevice(ctx, cmd, device, baud, log)
}

func dialDevice(ctx context.Context, cmd *cobra.Command, device string, baud int, log *slog.Logger) (*pcr.Client, error) {
	ackTimeout, _ := cmd.Flags().GetDuration("ack-timeout")
	readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")

	slope, _ := cmd.Flags().GetFloat64("slope")
	intercept, _ := cmd.Flags().GetFloat64("intercept")
	cal := pcr.Calibration{Slope: slope, Intercept: intercept}
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	cfg := serial.DefaultConfig(device)
	cfg.Baud = baud

	log.Info("connecting", "device", device, "baud", baud)
	client, err := pcr.Connect(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", device, err)
	}
	client.SetAckTimeout(ackTimeout)
	if cal != pcr.Identity {
		if err := client.SetCalibration(cal); err != nil {
			client.Close()
			return nil, err
		}
		log.Info("calibrated", "slope", slope, "intercept", intercept)
	}

	if readyTimeout > 0 {
		readyCtx, cancel := context.WithTimeout(ctx, readyTimeout)
		defer cancel()
		if err := client.WaitReady(readyCtx); err != nil {
			log.Warn("board did not announce itself", "err", err)
		}
	}
	return client, nil
}
