// Package stats aggregates the CSV report log into the per-county
// figures served to the dashboard.
package stats

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
)

const (
	topN          = 5
	unknownCounty = "未知地區"
	unknownCat    = "未分類"
)

// TypeCount is one scam type with its occurrence count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// CountyStats is the aggregate for one county.
type CountyStats struct {
	County string      `json:"county"`
	Count  int         `json:"count"`
	Top5   []TypeCount `json:"top5"`
}

// Report is the full dashboard payload.
type Report struct {
	CountyCounts []CountyStats `json:"county_counts"`
	Top5         []TypeCount   `json:"top5"`
}

// Aggregate reads the report log and builds the dashboard figures. A
// missing file yields an empty report, not an error; a row-level problem
// skips the row.
func Aggregate(csvPath string) (*Report, error) {
	f, err := os.Open(csvPath)
	if os.IsNotExist(err) {
		log.Printf("[Stats] csv log %s not found, returning empty report", csvPath)
		return &Report{CountyCounts: []CountyStats{}, Top5: []TypeCount{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open csv log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return &Report{CountyCounts: []CountyStats{}, Top5: []TypeCount{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	countyIdx, typeIdx := columnIndexes(header)

	countyTotals := map[string]int{}
	countyTypes := map[string]map[string]int{}
	totals := map[string]int{}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("[Stats] skipping malformed csv row: %v", err)
			continue
		}
		county := fieldOr(row, countyIdx, unknownCounty)
		scamType := fieldOr(row, typeIdx, unknownCat)

		countyTotals[county]++
		if countyTypes[county] == nil {
			countyTypes[county] = map[string]int{}
		}
		countyTypes[county][scamType]++
		totals[scamType]++
	}

	report := &Report{
		CountyCounts: make([]CountyStats, 0, len(countyTotals)),
		Top5:         topCounts(totals, topN),
	}
	for county, count := range countyTotals {
		report.CountyCounts = append(report.CountyCounts, CountyStats{
			County: county,
			Count:  count,
			Top5:   topCounts(countyTypes[county], topN),
		})
	}
	// stable output order for the dashboard
	sort.Slice(report.CountyCounts, func(i, j int) bool {
		a, b := report.CountyCounts[i], report.CountyCounts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.County < b.County
	})
	return report, nil
}

func columnIndexes(header []string) (countyIdx, typeIdx int) {
	countyIdx, typeIdx = 1, 3
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case "county":
			countyIdx = i
		case "scam_type":
			typeIdx = i
		}
	}
	return countyIdx, typeIdx
}

func fieldOr(row []string, idx int, fallback string) string {
	if idx >= len(row) {
		return fallback
	}
	v := strings.TrimSpace(row[idx])
	if v == "" {
		return fallback
	}
	return v
}

// topCounts returns the n highest counts, ties broken alphabetically so
// the output is deterministic.
func topCounts(counts map[string]int, n int) []TypeCount {
	out := make([]TypeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
