package telemetry

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"phagebox/host/pcr"
)

var csvHeader = []string{"time", "zone", "kind", "celsius"}

// CSVSink writes one row per sample
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSVSink writes a header to w. w is closed with the sink when it is
// an io.Closer.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.w.Write(csvHeader); err != nil {
		return nil, err
	}
	s.w.Flush()
	return s, s.w.Error()
}

func (s *CSVSink) Record(_ context.Context, sample pcr.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := []string{
		sample.Time.Format(time.RFC3339Nano),
		sample.Zone,
		sample.Kind.String(),
		strconv.FormatFloat(sample.Celsius, 'f', 2, 64),
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
