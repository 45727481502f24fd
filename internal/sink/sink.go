// Package sink implements the pipeline's two persistence destinations:
// an append-only CSV writer, and the Persistence Adapter contract
// (interface only - the store itself is out of scope).
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"jobscrape/internal/errs"
	"jobscrape/internal/model"
)

// Sink accepts a run's filtered records exactly once, after all pipeline
// work has completed successfully.
type Sink interface {
	Persist(ctx context.Context, records []model.JobRecord) error
}

// Adapter accepts enriched records and upserts them, mapping structured
// location fields into the store's own columns. No concrete implementation
// ships with this module - the store is an external collaborator.
type Adapter interface {
	Upsert(ctx context.Context, records []model.JobRecord) error
}

// AdapterSink adapts an Adapter to the Sink interface so the orchestrator
// can depend on one type regardless of which destination a run selects.
type AdapterSink struct {
	Adapter Adapter
}

func (s AdapterSink) Persist(ctx context.Context, records []model.JobRecord) error {
	if err := s.Adapter.Upsert(ctx, records); err != nil {
		return fmt.Errorf("%w: persistence adapter upsert: %v", errs.ErrSink, err)
	}
	return nil
}

// CSVSink appends rows to Path, UTF-8 text, one record per row. The header
// is written iff Path is absent or empty; every subsequent call appends.
// Columns are derived from the first record's key set.
type CSVSink struct {
	Path string
}

func (s CSVSink) Persist(ctx context.Context, records []model.JobRecord) error {
	if len(records) == 0 {
		return nil
	}

	needsHeader, err := fileNeedsHeader(s.Path)
	if err != nil {
		return fmt.Errorf("%w: checking %s: %v", errs.ErrSink, s.Path, err)
	}

	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", errs.ErrSink, s.Path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	columns := recordColumns(records[0])

	if needsHeader {
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("%w: writing header to %s: %v", errs.ErrSink, s.Path, err)
		}
	}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := recordRow(rec, columns)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("%w: writing row to %s: %v", errs.ErrSink, s.Path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("%w: flushing %s: %v", errs.ErrSink, s.Path, err)
	}
	return nil
}

func fileNeedsHeader(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Size() == 0, nil
}

// recordColumns derives the CSV column order from the first record's key
// set: the fixed core fields in a stable order, followed by the structured
// location columns when present.
func recordColumns(first model.JobRecord) []string {
	columns := []string{
		"detail_url", "title", "company_name", "location_parsed", "date_posted_parsed",
	}
	if first.LocationParsedIntelligent != nil {
		columns = append(columns, "city", "country", "region")
	}
	return columns
}

func recordRow(rec model.JobRecord, columns []string) []string {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = cellValue(rec, col)
	}
	return row
}

func cellValue(rec model.JobRecord, col string) string {
	switch col {
	case "detail_url":
		return rec.DetailURL
	case "title":
		return rec.Title
	case "company_name":
		return rec.CompanyName
	case "location_parsed":
		return rec.LocationParsed
	case "date_posted_parsed":
		if rec.DatePostedParsed != nil {
			return *rec.DatePostedParsed
		}
		return ""
	case "city":
		return scalarOrEmpty(locationField(rec, "city"))
	case "country":
		return scalarOrEmpty(locationField(rec, "country"))
	case "region":
		return scalarOrEmpty(locationField(rec, "region"))
	default:
		return ""
	}
}

func locationField(rec model.JobRecord, field string) *string {
	if rec.LocationParsedIntelligent == nil {
		return nil
	}
	switch field {
	case "city":
		return rec.LocationParsedIntelligent.City
	case "country":
		return rec.LocationParsedIntelligent.Country
	case "region":
		return rec.LocationParsedIntelligent.Region
	default:
		return nil
	}
}

func scalarOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
