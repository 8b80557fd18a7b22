package sink

import (
	"context"
	"errors"
	"strings"
)

// Sink is an append-only destination for audit lines
//
//go:generate mockgen -source=sink.go -destination=../mocks/sink.go -package=mocks -mock_names=Sink=MockSink
type Sink interface {
	// AppendLine appends one line to the audit trail, a trailing newline is added when missing
	AppendLine(ctx context.Context, line string) error
	// Close releases the underlying resources
	Close() error
}

type multi struct {
	sinks []Sink
}

// Multi returns a sink that appends every line to each of sinks in order.
// The first failing sink stops the fan-out.
func Multi(sinks ...Sink) Sink {
	flat := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if m, ok := s.(*multi); ok {
			flat = append(flat, m.sinks...)
			continue
		}
		flat = append(flat, s)
	}
	return &multi{sinks: flat}
}

func (m *multi) AppendLine(ctx context.Context, line string) error {
	for _, s := range m.sinks {
		if err := s.AppendLine(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors
func (m *multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// terminate returns line with exactly one trailing newline
func terminate(line string) string {
	return strings.TrimRight(line, "\r\n") + "\n"
}
