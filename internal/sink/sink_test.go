package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscrape/internal/model"
)

func strPtr(s string) *string { return &s }

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	s := CSVSink{Path: path}

	first := []model.JobRecord{{
		JobSummary:  model.JobSummary{Title: "Engineer", DetailURL: "https://x/1", LocationParsed: "London"},
		CompanyName: "Acme",
	}}
	require.NoError(t, s.Persist(context.Background(), first))

	second := []model.JobRecord{{
		JobSummary:  model.JobSummary{Title: "Analyst", DetailURL: "https://x/2", LocationParsed: "Paris"},
		CompanyName: "Acme",
	}}
	require.NoError(t, s.Persist(context.Background(), second))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + 2 data rows
	assert.Equal(t, []string{"detail_url", "title", "company_name", "location_parsed", "date_posted_parsed"}, rows[0])
	assert.Equal(t, "Engineer", rows[1][1])
	assert.Equal(t, "Analyst", rows[2][1])
}

func TestCSVSinkIncludesIntelligentLocationColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	s := CSVSink{Path: path}

	records := []model.JobRecord{{
		JobSummary:  model.JobSummary{Title: "Engineer", DetailURL: "https://x/1", LocationParsed: "London, UK"},
		CompanyName: "Acme",
		LocationParsedIntelligent: &model.Location{
			City:    strPtr("London"),
			Country: strPtr("United Kingdom"),
		},
	}}
	require.NoError(t, s.Persist(context.Background(), records))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"detail_url", "title", "company_name", "location_parsed", "date_posted_parsed", "city", "country", "region"}, rows[0])
	assert.Equal(t, "London", rows[1][5])
	assert.Equal(t, "United Kingdom", rows[1][6])
	assert.Equal(t, "", rows[1][7])
}

func TestCSVSinkNoHeaderWhenFileAlreadyHasContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("detail_url,title,company_name,location_parsed,date_posted_parsed\n"), 0o644))

	s := CSVSink{Path: path}
	records := []model.JobRecord{{
		JobSummary:  model.JobSummary{Title: "Engineer", DetailURL: "https://x/1"},
		CompanyName: "Acme",
	}}
	require.NoError(t, s.Persist(context.Background(), records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
