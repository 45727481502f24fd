package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestJobRecordEqualIgnoresPointerIdentity(t *testing.T) {
	a := JobRecord{
		JobSummary:  JobSummary{Title: "Engineer", DatePostedParsed: strPtr("2026-01-02")},
		CompanyName: "Acme",
	}
	b := a.Clone()

	assert.True(t, a.Equal(b))
	assert.NotSame(t, a.DatePostedParsed, b.DatePostedParsed)
}

func TestJobRecordEqualDetectsDifference(t *testing.T) {
	a := JobRecord{JobSummary: JobSummary{Title: "Engineer"}}
	b := JobRecord{JobSummary: JobSummary{Title: "Analyst"}}
	assert.False(t, a.Equal(b))
}

func TestLocationEqual(t *testing.T) {
	a := &Location{City: strPtr("London"), Confidence: 0.5}
	b := &Location{City: strPtr("London"), Confidence: 0.5}
	c := &Location{City: strPtr("Paris"), Confidence: 0.5}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, (*Location)(nil).Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestNewFailedDetail(t *testing.T) {
	d := NewFailedDetail("https://x/1")
	assert.Equal(t, NA, d.Description)
	assert.Equal(t, NA, d.JobID)
	assert.Equal(t, NA, d.DetailPageTitle)
	assert.Equal(t, "https://x/1", d.URL)
}

func TestCloneDeepCopiesPointers(t *testing.T) {
	loc := &Location{City: strPtr("London")}
	rec := JobRecord{LocationParsedIntelligent: loc}
	clone := rec.Clone()

	*clone.LocationParsedIntelligent.City = "Paris"
	assert.Equal(t, "London", *rec.LocationParsedIntelligent.City)
}
