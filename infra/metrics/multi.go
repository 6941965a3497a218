package metrics

import coremetrics "github.com/kdarko/wastedispatch/core/metrics"

// MultiSink fans out engine events to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRunEvent forwards the event to all sinks, returning the first error
// encountered.
func (m *MultiSink) RecordRunEvent(ev coremetrics.RunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRunEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordFuelEvent forwards fuel snapshots.
func (m *MultiSink) RecordFuelEvent(ev coremetrics.FuelEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordFuelEvent(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCapacityEvent forwards facility snapshots.
func (m *MultiSink) RecordCapacityEvent(ev coremetrics.CapacityEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordCapacityEvent(ev); err != nil {
			return err
		}
	}
	return nil
}
