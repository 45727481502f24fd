package enrichment

import (
	"context"
	"strings"
	"sync"

	"jobscrape/internal/logging"
	"jobscrape/internal/model"
)

// State is one of the engine's three observable states.
type State string

const (
	StateDisabled     State = "disabled"
	StateUnconfigured State = "unconfigured"
	StateActive       State = "active"
)

// Resolve derives the engine's state from the run's configuration: the
// feature flag gates first, then the credential. Unconfigured downgrades to
// disabled behavior with a single warning, never a hard failure.
func Resolve(enabled bool, apiKey string) State {
	if !enabled {
		return StateDisabled
	}
	if strings.TrimSpace(apiKey) == "" {
		return StateUnconfigured
	}
	return StateActive
}

// BatchLocationProcessor extracts unique raw location strings, makes the
// single batched remote call, and serves lookups from the resulting cache.
type BatchLocationProcessor struct {
	transport Transport

	mu    sync.RWMutex
	cache map[string]*model.Location // absent key = cache miss or batch failure (Decorate tries the per-record call)
}

// NewBatchLocationProcessor wraps transport in a fresh, empty run-scoped
// cache. transport is nil when the engine is not in the active state.
func NewBatchLocationProcessor(transport Transport) *BatchLocationProcessor {
	return &BatchLocationProcessor{transport: transport, cache: map[string]*model.Location{}}
}

// ExtractUnique returns the ordered list of distinct non-empty location_raw
// strings across summaries, in first-occurrence order.
func ExtractUnique(summaries []model.JobSummary) []string {
	seen := make(map[string]struct{}, len(summaries))
	var unique []string
	for _, s := range summaries {
		raw := strings.TrimSpace(s.LocationRaw)
		if raw == "" {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		unique = append(unique, raw)
	}
	return unique
}

// Prepare makes the single batched remote call for every string in unique
// and populates the cache. A batch failure leaves the cache empty for every
// string it covers — each later falls through to the per-record fallback.
func (p *BatchLocationProcessor) Prepare(ctx context.Context, unique []string) error {
	if len(unique) == 0 || p.transport == nil {
		return nil
	}

	results, err := p.transport.BatchLocations(ctx, unique)
	if err != nil {
		logging.Get().Warn().Err(err).Int("count", len(unique)).Msg("batch location call failed, falling back per-record")
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, raw := range unique {
		result, ok := results[raw]
		if !ok {
			continue // partial-batch miss: leave it absent from the cache, the per-record fallback covers it
		}
		loc := normalize(result)
		p.cache[raw] = &loc
	}
	return nil
}

// Lookup returns the cached structured location for raw, or nil if it is
// not present (cache miss or prior batch failure). Populated once by
// Prepare before any detail task reads it, so concurrent Lookup calls need
// no synchronization beyond the read lock already held here.
func (p *BatchLocationProcessor) Lookup(raw string) *model.Location {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cache[raw]
}

// FallbackLookup performs the fallback chain's level-2 per-record remote
// call when the cache missed. A failure here simply returns nil, letting
// the caller fall through to level 3 (legacy parser output only).
func (p *BatchLocationProcessor) FallbackLookup(ctx context.Context, raw string) *model.Location {
	if p.transport == nil {
		return nil
	}
	result, err := p.transport.Location(ctx, raw)
	if err != nil {
		logging.Get().Warn().Err(err).Str("location_raw", raw).Msg("per-record location call failed, leaving intelligent location absent")
		return nil
	}
	loc := normalize(result)
	return &loc
}

// normalize turns the "Unknown" sentinel in any scalar field into nil.
func normalize(r RawLocation) model.Location {
	return model.Location{
		City:       normalizeScalar(r.City),
		Country:    normalizeScalar(r.Country),
		Region:     normalizeScalar(r.Region),
		Confidence: r.Confidence,
	}
}

func normalizeScalar(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.EqualFold(trimmed, "unknown") {
		return nil
	}
	return &trimmed
}

// BatchJobProcessor drives prepare_cache over a run's summaries and
// decorates merged records from the resulting cache, with a three-level
// fallback chain per record.
type BatchJobProcessor struct {
	state     State
	locations *BatchLocationProcessor
	calls     int
}

// NewBatchJobProcessor builds a processor for the given state. transport is
// ignored (and should be nil) unless state is StateActive.
func NewBatchJobProcessor(state State, transport Transport) *BatchJobProcessor {
	if state != StateActive {
		transport = nil
	}
	return &BatchJobProcessor{state: state, locations: NewBatchLocationProcessor(transport)}
}

// State returns the engine's resolved feature-gate state.
func (b *BatchJobProcessor) State() State { return b.state }

// Calls returns how many batched remote calls this processor issued, for
// the run report's enrichment tally.
func (b *BatchJobProcessor) Calls() int { return b.calls }

// PrepareCache runs extract_unique + prepare exactly once per run, the
// engine's at-most-one batched remote call invariant. A no-op in the
// disabled/unconfigured states.
func (b *BatchJobProcessor) PrepareCache(ctx context.Context, summaries []model.JobSummary) {
	if b.state != StateActive {
		return
	}

	unique := ExtractUnique(summaries)
	if len(unique) == 0 {
		return
	}

	b.calls++
	if err := b.locations.Prepare(ctx, unique); err != nil {
		// prepare-time batch failure: cache stays empty for these strings,
		// decorate falls through to the per-record fallback below.
		return
	}
}

// Decorate attaches location_parsed_intelligent to record via the fallback
// chain, walking cache hit -> per-record call -> absent. A no-op in the
// disabled/unconfigured states, and idempotent: re-decorating an already-
// decorated record yields an equal record because a cache hit is
// deterministic and a non-empty LocationParsedIntelligent short-circuits
// before any remote call.
func (b *BatchJobProcessor) Decorate(ctx context.Context, record model.JobRecord) model.JobRecord {
	if b.state != StateActive {
		return record
	}
	if record.LocationParsedIntelligent != nil {
		return record
	}

	raw := strings.TrimSpace(record.LocationRaw)
	if raw == "" {
		return record
	}

	if loc := b.locations.Lookup(raw); loc != nil {
		record.LocationParsedIntelligent = loc
		return record
	}

	if loc := b.locations.FallbackLookup(ctx, raw); loc != nil {
		record.LocationParsedIntelligent = loc
		return record
	}

	return record
}
