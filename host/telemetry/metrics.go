package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"phagebox/host/pcr"
)

// Metrics exports samples as prometheus gauges
type Metrics struct {
	Temperature *prometheus.GaugeVec
	Setpoint    *prometheus.GaugeVec
	Samples     *prometheus.CounterVec
	Dropped     prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Temperature: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "phagebox",
				Subsystem: "zone",
				Name:      "temperature_celsius",
				Help:      "Last measured zone temperature",
			},
			[]string{"zone"},
		),
		Setpoint: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "phagebox",
				Subsystem: "zone",
				Name:      "setpoint_celsius",
				Help:      "Current zone setpoint",
			},
			[]string{"zone"},
		),
		Samples: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "phagebox",
				Subsystem: "telemetry",
				Name:      "samples_total",
				Help:      "Telemetry samples received",
			},
			[]string{"zone", "kind"},
		),
		Dropped: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "phagebox",
				Subsystem: "telemetry",
				Name:      "dropped_samples",
				Help:      "Samples discarded because the consumer fell behind",
			},
		),
	}
	reg.MustRegister(m.Temperature, m.Setpoint, m.Samples, m.Dropped)
	return m
}

func (m *Metrics) Record(_ context.Context, s pcr.Sample) error {
	if s.Kind == pcr.SampleSetpoint {
		m.Setpoint.WithLabelValues(s.Zone).Set(s.Celsius)
	} else {
		m.Temperature.WithLabelValues(s.Zone).Set(s.Celsius)
	}
	m.Samples.WithLabelValues(s.Zone, s.Kind.String()).Inc()
	return nil
}

func (m *Metrics) Close() error { return nil }
