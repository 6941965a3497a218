package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/kdarko/wastedispatch/core/metrics"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordRunEvent(coremetrics.RunEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordFuelEvent(coremetrics.FuelEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordCapacityEvent(coremetrics.CapacityEvent) error {
	r.count++
	return r.err
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRunEvent(coremetrics.RunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordFuelEvent(coremetrics.FuelEvent{}); err != nil {
		t.Fatalf("record fuel: %v", err)
	}
	if err := m.RecordCapacityEvent(coremetrics.CapacityEvent{}); err != nil {
		t.Fatalf("record capacity: %v", err)
	}
	if s1.count != 3 || s2.count != 3 {
		t.Fatalf("events not forwarded")
	}
}

func TestMultiSinkFirstErrorWins(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRunEvent(coremetrics.RunEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if s2.count != 0 {
		t.Fatalf("later sinks must not run after an error")
	}
}
