// Package enrich implements the reference enricher (C3): for each FK field
// on a fetched record, it fetches the referenced record and attaches
// identifying values as _references metadata, so the FK can be rebound at a
// different target instance later.
package enrich

import (
	"context"
	"sync"

	"github.com/dbsmedya/linkbridge/internal/fk"
	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// DefaultMaxFanout is the suggested bounded fan-out width for concurrent
// referent fetches within a single record, per spec's concurrency model.
const DefaultMaxFanout = 8

// FetchByID fetches a single record of resourceType by id. ok is false when
// the referent does not exist; err is reserved for transport failures.
type FetchByID func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error)

// Enricher walks a record set, classifying FK fields and attaching
// _references metadata for every FK it can resolve.
type Enricher struct {
	fetch     FetchByID
	policy    *lookup.Policy
	maxFanout int

	cacheMu sync.Mutex
	cache   map[cacheKey]*linkrecord.Record
}

type cacheKey struct {
	resourceType, id string
}

// New creates an Enricher. maxFanout <= 0 falls back to DefaultMaxFanout.
func New(fetch FetchByID, policy *lookup.Policy, maxFanout int) *Enricher {
	if maxFanout <= 0 {
		maxFanout = DefaultMaxFanout
	}
	return &Enricher{
		fetch:     fetch,
		policy:    policy,
		maxFanout: maxFanout,
		cache:     make(map[cacheKey]*linkrecord.Record),
	}
}

// Enrich walks records in place, setting _original_id on every record and
// _references entries for every FK field it can resolve. Referent lookup
// failures — not-found or transport — are silently skipped per §4.3/§7: the
// record is left unenriched for that field, and the import side reports it
// as missing. A failure on one field or one record never stops enrichment
// of the rest of the batch.
func (e *Enricher) Enrich(ctx context.Context, resourceType string, records []*linkrecord.Record) error {
	for _, rec := range records {
		if rec.GetString(linkrecord.FieldOriginalID) == "" {
			rec.Set(linkrecord.FieldOriginalID, rec.GetString(linkrecord.FieldID))
		}
		e.enrichOne(ctx, resourceType, rec)
	}
	return nil
}

type fkTarget struct {
	field          string
	classification fk.Classification
	value          string
}

func (e *Enricher) enrichOne(ctx context.Context, resourceType string, rec *linkrecord.Record) {
	var targets []fkTarget
	rec.Range(func(field string, value any) bool {
		c := fk.Classify(field, value)
		if c.Kind == fk.Scalar {
			return true
		}
		// Classify already confirmed value is a non-empty string.
		s, _ := value.(string)
		targets = append(targets, fkTarget{field: field, classification: c, value: s})
		return true
	})
	if len(targets) == 0 {
		return
	}

	references := linkrecord.New()
	if existing, ok := rec.Get(linkrecord.FieldReferences); ok {
		if existingRec, ok := existing.(*linkrecord.Record); ok {
			references = existingRec
		}
	}

	gate := make(chan struct{}, e.maxFanout)
	var wg sync.WaitGroup
	entries := make([]*linkrecord.Record, len(targets))

	for i, target := range targets {
		i, target := i, target
		wg.Add(1)
		gate <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-gate }()

			// A fetch failure — not-found or transport — is silently
			// skipped per §4.3: this field just goes unenriched and the
			// import side will later report it as missing.
			entry, err := e.resolve(ctx, resourceType, target)
			if err != nil {
				return
			}
			entries[i] = entry
		}()
	}
	wg.Wait()

	// Entries are written into references in target (field) order rather
	// than completion order, so _references ordering is stable regardless
	// of how the fan-out above interleaves, per the enricher fan-out
	// design note.
	for i, target := range targets {
		if entries[i] != nil {
			references.Set(target.field, entries[i])
		}
	}

	if references.Len() > 0 {
		rec.Set(linkrecord.FieldReferences, references)
	}
}

func (e *Enricher) resolve(ctx context.Context, currentResourceType string, target fkTarget) (*linkrecord.Record, error) {
	if target.classification.Kind == fk.SelfFK {
		entry := linkrecord.New()
		entry.Set("resource_type", currentResourceType)
		entry.Set("original_id", target.value)
		entry.Set("lookup_field", linkrecord.FieldOriginalID)
		entry.Set("lookup_value", target.value)
		return entry, nil
	}

	referent, found, err := e.fetchCached(ctx, target.classification.ResourceType, target.value)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	field, lookupValue, ok := e.policy.FirstNonNullFrom(target.classification.ResourceType, func(f string) (any, bool) {
		return referent.Get(f)
	})
	if !ok {
		return nil, nil
	}

	entry := linkrecord.New()
	entry.Set("resource_type", target.classification.ResourceType)
	entry.Set("original_id", target.value)
	entry.Set("lookup_field", field)
	entry.Set("lookup_value", lookupValue)
	return entry, nil
}

func (e *Enricher) fetchCached(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
	key := cacheKey{resourceType: resourceType, id: id}

	e.cacheMu.Lock()
	if cached, ok := e.cache[key]; ok {
		e.cacheMu.Unlock()
		return cached, cached != nil, nil
	}
	e.cacheMu.Unlock()

	rec, found, err := e.fetch(ctx, resourceType, id)
	if err != nil {
		return nil, false, err
	}

	e.cacheMu.Lock()
	if found {
		e.cache[key] = rec
	} else {
		e.cache[key] = nil
	}
	e.cacheMu.Unlock()

	return rec, found, nil
}
