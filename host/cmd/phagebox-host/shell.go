package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"phagebox/host/logging"
	"phagebox/host/pcr"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          "phagebox> ",
			InterruptPrompt: "^C",
			EOFPrompt:       "quit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer rl.Close()

		name, _ := cmd.Flags().GetString("log-level")
		level, err := logging.ParseLevel(name)
		if err != nil {
			return err
		}
		// Log through readline so output does not clobber the prompt
		log := logging.NewWriter(rl.Stderr(), level)

		client, err := dial(cmd.Context(), cmd, log)
		if err != nil {
			return err
		}
		defer client.Close()

		sh := &shell{client: client, out: rl.Stdout()}
		go sh.follow(cmd.Context())
		return sh.loop(cmd.Context(), rl)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

type shell struct {
	client *pcr.Client
	out    io.Writer
	watch  atomic.Bool
}

func (s *shell) loop(ctx context.Context, rl *readline.Instance) error {
	s.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		if quit := s.exec(ctx, parts[0], parts[1:]); quit {
			return nil
		}
	}
}

// exec runs one console command and reports whether to quit
func (s *shell) exec(ctx context.Context, cmd string, args []string) bool {
	var err error
	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.printHelp()
	case "start":
		err = s.start(ctx, args)
	case "stop":
		var zones []pcr.Zone
		if zones, err = parseZones(args); err == nil {
			err = stopZones(ctx, s.client, zones)
		}
	case "led":
		err = s.client.ToggleAux(ctx, false, true)
	case "magnet":
		err = s.client.ToggleAux(ctx, true, false)
	case "raw":
		var ack string
		if ack, err = s.client.Send(ctx, args...); err == nil {
			fmt.Fprintf(s.out, "<%s>\n", ack)
		}
	case "watch":
		s.watch.Store(!s.watch.Load())
		fmt.Fprintf(s.out, "watch %v\n", s.watch.Load())
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for available commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

// start parses "start <zone> <cycles> <den_s> <den_c> <ann_s> <ann_c> <ext_s> <ext_c>"
func (s *shell) start(ctx context.Context, args []string) error {
	if len(args) != 8 {
		return errors.New("usage: start <zone> <cycles> <den_s> <den_c> <ann_s> <ann_c> <ext_s> <ext_c>")
	}
	zone, err := pcr.ParseZone(args[0])
	if err != nil {
		return err
	}

	var nums [7]float64
	for i, a := range args[1:] {
		if nums[i], err = strconv.ParseFloat(a, 64); err != nil {
			return fmt.Errorf("bad number %q", a)
		}
	}
	p := pcr.Program{
		Cycles:   int(nums[0]),
		Denature: pcr.Step{Seconds: int(nums[1]), Celsius: nums[2]},
		Anneal:   pcr.Step{Seconds: int(nums[3]), Celsius: nums[4]},
		Elongate: pcr.Step{Seconds: int(nums[5]), Celsius: nums[6]},
	}
	if err := s.client.StartZone(ctx, zone, p); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%v started, about %v\n", zone, p.Duration())
	return nil
}

// follow prints samples while watch is on and board notices always
func (s *shell) follow(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case smp, ok := <-s.client.Samples():
			if !ok {
				return
			}
			if s.watch.Load() {
				fmt.Fprintf(s.out, "%s %-8s %6.2f\n", smp.Zone, smp.Kind, smp.Celsius)
			}
		case n, ok := <-s.client.Notices():
			if !ok {
				return
			}
			fmt.Fprintf(s.out, "board: %s\n", n)
		}
	}
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "\nAvailable commands:")
	fmt.Fprintln(s.out, "  start <zone> <cycles> <den_s> <den_c> <ann_s> <ann_c> <ext_s> <ext_c>")
	fmt.Fprintln(s.out, "  stop [front|back|all]  - Stop zones")
	fmt.Fprintln(s.out, "  led                    - Toggle the LED")
	fmt.Fprintln(s.out, "  magnet                 - Toggle the magnet")
	fmt.Fprintln(s.out, "  raw <field>...         - Send a raw frame, e.g. raw B 0 1")
	fmt.Fprintln(s.out, "  watch                  - Toggle sample printing")
	fmt.Fprintln(s.out, "  quit/exit/q            - Exit the program")
	fmt.Fprintln(s.out)
}
