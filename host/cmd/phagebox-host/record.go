package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"phagebox/host/pcr"
	"phagebox/host/telemetry"
)

// recorder is where samples go for one session
type recorder struct {
	sinks  telemetry.Fanout
	latest *telemetry.Latest
	reg    *prometheus.Registry
	listen string
}

type recordOptions struct {
	CSV    string
	Redis  string
	Listen string
}

func addRecordFlags(cmd *cobra.Command) {
	cmd.Flags().String("csv", "", "Write samples to a CSV file (- for stdout)")
	cmd.Flags().String("redis", "", "Append samples to a Redis stream at host:port")
	cmd.Flags().String("listen", "", "Serve /metrics and /zones on this address")
}

// recordFlags overlays the command's flags onto defaults
func recordFlags(cmd *cobra.Command, opts recordOptions) recordOptions {
	if cmd.Flags().Changed("csv") {
		opts.CSV, _ = cmd.Flags().GetString("csv")
	}
	if cmd.Flags().Changed("redis") {
		opts.Redis, _ = cmd.Flags().GetString("redis")
	}
	if cmd.Flags().Changed("listen") {
		opts.Listen, _ = cmd.Flags().GetString("listen")
	}
	return opts
}

func newRecorder(ctx context.Context, opts recordOptions, log *slog.Logger) (*recorder, error) {
	r := &recorder{
		latest: telemetry.NewLatest(),
		reg:    prometheus.NewRegistry(),
		listen: opts.Listen,
	}
	r.sinks = append(r.sinks, r.latest, telemetry.NewMetrics(r.reg))

	if opts.CSV != "" {
		var w io.Writer = os.Stdout
		if opts.CSV != "-" {
			f, err := os.Create(opts.CSV)
			if err != nil {
				return nil, fmt.Errorf("create csv: %w", err)
			}
			w = f
		}
		csvSink, err := telemetry.NewCSVSink(w)
		if err != nil {
			r.sinks.Close()
			return nil, err
		}
		r.sinks = append(r.sinks, csvSink)
	}

	if opts.Redis != "" {
		rs := telemetry.NewRedisSink(opts.Redis)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			r.sinks.Close()
			return nil, err
		}
		log.Info("recording to redis", "stream", rs.Stream(), "session", rs.Session())
		r.sinks = append(r.sinks, rs)
	}
	return r, nil
}

// run records samples until ctx ends or the connection drops. The status
// server, if any, runs alongside.
func (r *recorder) run(ctx context.Context, client *pcr.Client, log *slog.Logger) error {
	if r.listen != "" {
		go func() {
			h := telemetry.NewStatusHandler(r.reg, r.latest)
			if err := telemetry.Serve(ctx, r.listen, h, log); err != nil {
				log.Error("status server", "err", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return pcr.ErrClosed
		case s, ok := <-client.Samples():
			if !ok {
				return pcr.ErrClosed
			}
			if err := r.sinks.Record(ctx, s); err != nil {
				log.Warn("record sample", "err", err)
			}
		case n, ok := <-client.Notices():
			if ok {
				log.Info("board", "text", n)
			}
		}
	}
}

func (r *recorder) Close() error {
	return r.sinks.Close()
}
