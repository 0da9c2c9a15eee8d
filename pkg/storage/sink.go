// Package storage implements the persistence sinks for analyzed reports.
// Sinks are best-effort: a failed write is logged and reported as false,
// and must never block or fail the response that triggered it.
package storage

import "context"

// Sink records one analyzed report.
type Sink interface {
	// Record writes a row of (raw input, scam type, region) and reports
	// success. Implementations stamp their own timestamp.
	Record(ctx context.Context, rawInput, scamType, region string) bool
	Close() error
}

// Fanout records to every configured sink; overall success means every
// sink succeeded.
type Fanout []Sink

func (f Fanout) Record(ctx context.Context, rawInput, scamType, region string) bool {
	ok := true
	for _, s := range f {
		if !s.Record(ctx, rawInput, scamType, region) {
			ok = false
		}
	}
	return ok
}

func (f Fanout) Close() error {
	var first error
	for _, s := range f {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
