package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// CSVHeader is the column layout of the log file. The stats aggregator
// reads the same file, so the order here is part of the contract.
var CSVHeader = []string{"timestamp", "county", "user_input", "scam_type"}

// CSVSink appends analyzed reports to a CSV file. Writes are serialized
// with a mutex; the handler goroutines share one sink.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

// NewCSVSink creates the sink, writing the header row if the file does
// not exist yet.
func NewCSVSink(path string) (*CSVSink, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create csv log: %w", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(CSVHeader); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, err
		}
		log.Printf("[Storage] created csv log %s", path)
	}
	return &CSVSink{path: path}, nil
}

// Record appends one row. Newlines in the input are scrubbed so a
// multi-line report cannot break the row format.
func (s *CSVSink) Record(_ context.Context, rawInput, scamType, region string) bool {
	cleaned := strings.NewReplacer("\n", " ", "\r", " ").Replace(rawInput)
	timestamp := time.Now().Format("2006-01-02 15:04:05")

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[Storage] csv open failed: %v", err)
		return false
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{timestamp, region, cleaned, scamType}); err != nil {
		log.Printf("[Storage] csv write failed: %v", err)
		return false
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("[Storage] csv flush failed: %v", err)
		return false
	}
	return true
}

// Path returns the log file location (the stats aggregator needs it).
func (s *CSVSink) Path() string { return s.path }

// Close implements Sink.
func (s *CSVSink) Close() error { return nil }
