// Package telemetry records firmware temperature samples.
package telemetry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"phagebox/host/pcr"
)

// Sink receives samples
type Sink interface {
	Record(ctx context.Context, s pcr.Sample) error
	Close() error
}

// Fanout sends every sample to each sink
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, s pcr.Sample) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Record(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, sink := range f {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ZoneStatus is the latest known state of one zone
type ZoneStatus struct {
	Zone     string    `json:"zone"`
	Celsius  float64   `json:"celsius"`
	Setpoint float64   `json:"setpoint"`
	Heating  bool      `json:"heating"`
	Updated  time.Time `json:"updated"`
}

// Latest keeps the last sample of each zone
type Latest struct {
	mu    sync.RWMutex
	zones map[string]ZoneStatus
}

func NewLatest() *Latest {
	return &Latest{zones: make(map[string]ZoneStatus)}
}

func (l *Latest) Record(_ context.Context, s pcr.Sample) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	z := l.zones[s.Zone]
	z.Zone = s.Zone
	z.Updated = s.Time
	if s.Kind == pcr.SampleSetpoint {
		z.Setpoint = s.Celsius
	} else {
		z.Celsius = s.Celsius
	}
	// The firmware heats while at or below the setpoint
	z.Heating = z.Celsius <= z.Setpoint
	l.zones[s.Zone] = z
	return nil
}

func (l *Latest) Close() error { return nil }

// Snapshot returns every zone seen so far, sorted by name
func (l *Latest) Snapshot() []ZoneStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ZoneStatus, 0, len(l.zones))
	for _, z := range l.zones {
		out = append(out, z)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Zone < out[j].Zone })
	return out
}
