//go:build !tinygo

// Command sim runs the PhageBox firmware on a desktop against a simulated
// thermal plant. It talks the device protocol on a serial device (one end
// of a pty pair, for example) or on stdin/stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"phagebox/config"
	"phagebox/host/logging"
	"phagebox/sim"
)

// stdio joins stdin and stdout into one stream
type stdio struct {
	io.Reader
	io.Writer
}

var rootCmd = &cobra.Command{
	Use:   "phagebox-sim",
	Short: "Run the PhageBox firmware against a simulated plant",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringP("device", "d", "", "Serial device to serve (default: stdin/stdout)")
	rootCmd.Flags().IntP("baud", "b", 9600, "Baud rate for --device")
	rootCmd.Flags().String("board", "", "Board config JSON (default: stock wiring)")
	rootCmd.Flags().String("plant", "", "Plant config YAML (default: built-in model)")
	rootCmd.Flags().Float64("speed", 0, "Simulated seconds per wall-clock second (overrides the plant config)")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
}

func run(cmd *cobra.Command, args []string) error {
	device, _ := cmd.Flags().GetString("device")
	baud, _ := cmd.Flags().GetInt("baud")
	boardPath, _ := cmd.Flags().GetString("board")
	plantPath, _ := cmd.Flags().GetString("plant")
	speed, _ := cmd.Flags().GetFloat64("speed")
	levelName, _ := cmd.Flags().GetString("log-level")

	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}
	log := logging.New(level)

	board := config.DefaultBoardConfig()
	if boardPath != "" {
		data, err := os.ReadFile(boardPath)
		if err != nil {
			return fmt.Errorf("failed to read board config: %w", err)
		}
		if board, err = config.LoadConfig(data); err != nil {
			return fmt.Errorf("invalid board config: %w", err)
		}
	}

	plant := sim.DefaultPlantConfig()
	if plantPath != "" {
		if plant, err = sim.LoadPlantConfig(plantPath); err != nil {
			return err
		}
	}
	if speed > 0 {
		plant.Speed = speed
	}

	var port io.ReadWriter = stdio{os.Stdin, os.Stdout}
	if device != "" {
		p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
		if err != nil {
			return fmt.Errorf("failed to open serial port %s: %w", device, err)
		}
		defer p.Close()
		port = p
		log.Info("serving device", "port", device, "baud", baud)
	}

	bench, err := sim.NewBench(board, plant, port, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bench.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
