package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscrape/internal/model"
)

type fakeTransport struct {
	batchCalls int
	batch      map[string]RawLocation
	batchErr   error

	singleCalls int
	single      map[string]RawLocation
	singleErr   error
}

func (f *fakeTransport) BatchLocations(_ context.Context, raw []string) (map[string]RawLocation, error) {
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := map[string]RawLocation{}
	for _, r := range raw {
		if v, ok := f.batch[r]; ok {
			out[r] = v
		}
	}
	return out, nil
}

func (f *fakeTransport) Location(_ context.Context, raw string) (RawLocation, error) {
	f.singleCalls++
	if f.singleErr != nil {
		return RawLocation{}, f.singleErr
	}
	v, ok := f.single[raw]
	if !ok {
		return RawLocation{}, errors.New("no fixture for " + raw)
	}
	return v, nil
}

func TestResolveState(t *testing.T) {
	assert.Equal(t, StateDisabled, Resolve(false, "key"))
	assert.Equal(t, StateUnconfigured, Resolve(true, ""))
	assert.Equal(t, StateActive, Resolve(true, "key"))
}

func TestExtractUniqueFirstOccurrenceDedup(t *testing.T) {
	summaries := []model.JobSummary{
		{LocationRaw: "London"},
		{LocationRaw: ""},
		{LocationRaw: "Paris"},
		{LocationRaw: "London"},
		{LocationRaw: "  "},
	}
	assert.Equal(t, []string{"London", "Paris"}, ExtractUnique(summaries))
}

func TestPrepareCacheSingleBatchCall(t *testing.T) {
	transport := &fakeTransport{
		batch: map[string]RawLocation{
			"Locations: London, UK": {City: "London", Country: "United Kingdom", Region: "Europe", Confidence: 0.9},
		},
	}
	proc := NewBatchJobProcessor(StateActive, transport)

	summaries := make([]model.JobSummary, 5)
	for i := range summaries {
		summaries[i] = model.JobSummary{LocationRaw: "Locations: London, UK"}
	}

	proc.PrepareCache(context.Background(), summaries)
	assert.Equal(t, 1, transport.batchCalls)
	assert.Equal(t, 1, proc.Calls())

	for i := range summaries {
		rec := model.JobRecord{JobSummary: summaries[i]}
		decorated := proc.Decorate(context.Background(), rec)
		require.NotNil(t, decorated.LocationParsedIntelligent)
		assert.Equal(t, "London", *decorated.LocationParsedIntelligent.City)
		assert.Equal(t, "United Kingdom", *decorated.LocationParsedIntelligent.Country)
	}
	assert.Equal(t, 0, transport.singleCalls)
}

func TestDecorateDisabledIsNoOp(t *testing.T) {
	transport := &fakeTransport{}
	proc := NewBatchJobProcessor(StateDisabled, transport)
	rec := model.JobRecord{JobSummary: model.JobSummary{LocationRaw: "London"}}

	proc.PrepareCache(context.Background(), []model.JobSummary{rec.JobSummary})
	out := proc.Decorate(context.Background(), rec)

	assert.Nil(t, out.LocationParsedIntelligent)
	assert.Equal(t, 0, transport.batchCalls)
}

func TestDecorateFallsBackToPerRecordOnCacheMiss(t *testing.T) {
	transport := &fakeTransport{
		batch: map[string]RawLocation{}, // batch returns nothing for this string
		single: map[string]RawLocation{
			"Remote": {City: "Unknown", Country: "United States", Region: "Unknown", Confidence: 0.4},
		},
	}
	proc := NewBatchJobProcessor(StateActive, transport)
	proc.PrepareCache(context.Background(), []model.JobSummary{{LocationRaw: "Remote"}})

	rec := model.JobRecord{JobSummary: model.JobSummary{LocationRaw: "Remote"}}
	out := proc.Decorate(context.Background(), rec)

	require.NotNil(t, out.LocationParsedIntelligent)
	assert.Nil(t, out.LocationParsedIntelligent.City)
	require.NotNil(t, out.LocationParsedIntelligent.Country)
	assert.Equal(t, "United States", *out.LocationParsedIntelligent.Country)
	assert.Equal(t, 1, transport.singleCalls)
}

func TestDecorateFallsThroughToAbsentOnTotalFailure(t *testing.T) {
	transport := &fakeTransport{
		batchErr: errors.New("batch down"),
		singleErr: errors.New("single down too"),
	}
	proc := NewBatchJobProcessor(StateActive, transport)
	proc.PrepareCache(context.Background(), []model.JobSummary{{LocationRaw: "Nowhere"}})

	rec := model.JobRecord{JobSummary: model.JobSummary{LocationRaw: "Nowhere"}}
	out := proc.Decorate(context.Background(), rec)

	assert.Nil(t, out.LocationParsedIntelligent)
}

func TestDecorateIsIdempotent(t *testing.T) {
	transport := &fakeTransport{
		batch: map[string]RawLocation{
			"London": {City: "London", Country: "United Kingdom", Region: "Europe", Confidence: 0.9},
		},
	}
	proc := NewBatchJobProcessor(StateActive, transport)
	proc.PrepareCache(context.Background(), []model.JobSummary{{LocationRaw: "London"}})

	rec := model.JobRecord{JobSummary: model.JobSummary{LocationRaw: "London"}}
	once := proc.Decorate(context.Background(), rec)
	twice := proc.Decorate(context.Background(), once)

	assert.True(t, once.Equal(twice))
	assert.Equal(t, 1, transport.batchCalls)
}

func TestUnconfiguredNeverCallsTransport(t *testing.T) {
	transport := &fakeTransport{}
	proc := NewBatchJobProcessor(StateUnconfigured, transport)
	proc.PrepareCache(context.Background(), []model.JobSummary{{LocationRaw: "London"}})

	rec := model.JobRecord{JobSummary: model.JobSummary{LocationRaw: "London"}}
	out := proc.Decorate(context.Background(), rec)

	assert.Nil(t, out.LocationParsedIntelligent)
	assert.Equal(t, 0, transport.batchCalls)
	assert.Equal(t, 0, transport.singleCalls)
}
