package migrate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dbsmedya/linkbridge/internal/fk"
	"github.com/dbsmedya/linkbridge/internal/graph"
	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/logger"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// DefaultMaxFanout is the suggested bounded fan-out width for the per-record
// S1 lookup queries, per §5's "suggested cap of 8" and mirroring
// internal/enrich.DefaultMaxFanout.
const DefaultMaxFanout = 8

// MaxAmbiguousCandidates caps how many candidates an ambiguous resolution
// trace records, per §4.10's "record up to N candidates with distinguishing
// fields."
const MaxAmbiguousCandidates = 5

// OnPolicy selects what happens to a record whose reference resolves to
// zero or more-than-one candidate.
type OnPolicy string

const (
	OnSkip OnPolicy = "skip"
	OnFail OnPolicy = "fail"
)

// Poster is the collaborator contract import needs from the REST client
// (A3): filtered lookup queries against the target, and the creating POST.
// *restclient.Client satisfies this.
type Poster interface {
	Query(ctx context.Context, baseURL, field, value string) ([]*linkrecord.Record, error)
	Post(ctx context.Context, baseURL string, body *linkrecord.Record) (*linkrecord.Record, error)
}

// ImportRequest carries every parameter the import orchestrator (C10)
// needs.
type ImportRequest struct {
	TargetURL    string
	Format       string
	Body         []byte
	OnAmbiguous  OnPolicy
	OnMissing    OnPolicy
	DetectCycles bool
	Policy       *lookup.Policy
	// MaxFanout bounds how many S1 lookup queries one record's FK fields may
	// have in flight at once (§5). <= 0 falls back to DefaultMaxFanout.
	MaxFanout int
	// RequestID scopes Logger, if set. Optional; a nil Logger disables
	// per-request/per-record logging entirely.
	RequestID string
	Logger    *logger.Logger
}

// ResolutionOutcome is the terminal state of one field's per-record
// protocol run.
type ResolutionOutcome string

const (
	Resolved  ResolutionOutcome = "resolved"
	Missing   ResolutionOutcome = "missing"
	Ambiguous ResolutionOutcome = "ambiguous"
	Carried   ResolutionOutcome = "carried"
)

// Candidate is one of up to MaxAmbiguousCandidates ambiguous lookup results
// recorded in a trace.
type Candidate struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ResolutionTrace records the outcome of resolving one FK field on one
// record, in processing order.
type ResolutionTrace struct {
	RecordIndex int               `json:"record_index"`
	OriginalID  string            `json:"original_id,omitempty"`
	Field       string            `json:"field"`
	Outcome     ResolutionOutcome `json:"outcome"`
	ResolvedID  string            `json:"resolved_id,omitempty"`
	Candidates  []Candidate       `json:"candidates,omitempty"`
}

// Report is the Import Report of §3: the complete accounting of one import
// request.
type Report struct {
	Total        int               `json:"total"`
	Successful   int               `json:"successful"`
	Failed       int               `json:"failed"`
	AutoResolved int               `json:"auto_resolved"`
	Ambiguous    int               `json:"ambiguous"`
	Missing      int               `json:"missing"`
	SessionIDMap map[string]string `json:"session_id_map"`
	Traces       []ResolutionTrace `json:"traces"`
	Errors       []RecordError     `json:"errors"`
	Warnings     []string          `json:"warnings,omitempty"`
	Duration     time.Duration     `json:"duration"`
}

// Import implements the Import Orchestrator (C10) per §4.10.
func Import(ctx context.Context, poster Poster, req ImportRequest) (*Report, error) {
	started := time.Now()

	resourceType := resourceTypeFromURL(req.TargetURL)

	log := req.Logger
	if log != nil {
		log = log.WithRequest(req.RequestID)
	}

	c, err := NewCodec(req.Format, CodecOptions{ResourceType: resourceType, Policy: req.Policy})
	if err != nil {
		return nil, err
	}

	records, err := c.Decode(req.Body)
	if err != nil {
		return nil, NewError(DecodeError, "decoding import body: %v", err)
	}

	for _, rec := range records {
		if rec.GetString(linkrecord.FieldOriginalID) == "" {
			rec.Set(linkrecord.FieldOriginalID, rec.GetString(linkrecord.FieldID))
		}
	}

	order, warnings := orderRecords(records, req.DetectCycles)

	report := &Report{
		Total:        len(order),
		SessionIDMap: make(map[string]string, len(order)),
		Warnings:     warnings,
	}

	if log != nil {
		log.Infow("import starting", "resource_type", resourceType, "total", report.Total)
		for _, w := range warnings {
			log.Warnw("import warning", "warning", w)
		}
	}

	maxFanout := req.MaxFanout
	if maxFanout <= 0 {
		maxFanout = DefaultMaxFanout
	}

	im := &importer{
		poster:       poster,
		targetURL:    req.TargetURL,
		resourceType: resourceType,
		policy:       req.Policy,
		onAmbiguous:  req.OnAmbiguous,
		onMissing:    req.OnMissing,
		sessionIDMap: report.SessionIDMap,
		logger:       log,
		maxFanout:    maxFanout,
	}
	if im.onAmbiguous == "" {
		im.onAmbiguous = OnSkip
	}
	if im.onMissing == "" {
		im.onMissing = OnSkip
	}

	var requestErr error

	for idx, rec := range order {
		outcome, fatal := im.processRecord(ctx, idx, rec, report)
		if outcome == recordPosted {
			report.Successful++
		} else if outcome == recordFailed {
			report.Failed++
		}
		if fatal != nil {
			requestErr = fatal
			break
		}
	}

	report.Duration = time.Since(started)
	if log != nil {
		log.Infow("import complete", "total", report.Total, "successful", report.Successful,
			"failed", report.Failed, "duration", report.Duration)
	}
	return report, requestErr
}

type recordOutcome int

const (
	recordPosted recordOutcome = iota
	recordFailed
)

type importer struct {
	poster       Poster
	targetURL    string
	resourceType string
	policy       *lookup.Policy
	onAmbiguous  OnPolicy
	onMissing    OnPolicy
	sessionIDMap map[string]string
	logger       *logger.Logger
	maxFanout    int
}

// processRecord runs the per-record protocol for one record: resolve every
// FK field, strip reserved fields, and POST. A non-nil fatal error means the
// whole import aborts after this record (an on_ambiguous=fail or
// on_missing=fail breach).
func (im *importer) processRecord(ctx context.Context, idx int, rec *linkrecord.Record, report *Report) (recordOutcome, *Error) {
	originalID := rec.OriginalID()
	posted := rec.WithoutReserved()

	var recLog *logger.Logger
	if im.logger != nil {
		recLog = im.logger.WithRecord(im.resourceType, originalID)
	}

	var fkFields []string
	rec.Range(func(field string, value any) bool {
		if fk.Classify(field, value).Kind == fk.Scalar {
			return true
		}
		fkFields = append(fkFields, field)
		return true
	})

	results := im.resolveFields(ctx, rec, fkFields)

	for i, field := range fkFields {
		outcome, resolvedID, candidates, queryErr := results[i].outcome, results[i].resolvedID, results[i].candidates, results[i].err
		trace := ResolutionTrace{
			RecordIndex: idx,
			OriginalID:  originalID,
			Field:       field,
			Outcome:     outcome,
			ResolvedID:  resolvedID,
			Candidates:  candidates,
		}
		report.Traces = append(report.Traces, trace)

		if queryErr != nil {
			if recLog != nil {
				recLog.Errorw("lookup query failed", "field", field, "error", queryErr)
			}
			report.Errors = append(report.Errors, RecordError{
				Index: idx, OriginalID: originalID, Kind: UpstreamUnavailable, Message: queryErr.Error(),
			})
			return recordFailed, nil
		}

		switch outcome {
		case Resolved:
			report.AutoResolved++
			posted.Set(field, resolvedID)
		case Missing:
			report.Missing++
			if recLog != nil {
				recLog.Warnw("reference missing", "field", field)
			}
			if im.onMissing == OnFail {
				report.Errors = append(report.Errors, RecordError{
					Index: idx, OriginalID: originalID, Kind: MissingReference,
					Message: fmt.Sprintf("field %s: no referent found", field),
				})
				return recordFailed, NewError(MissingReference, "field %s on record %d: no referent found", field, idx)
			}
			posted.Set(field, nil)
		case Ambiguous:
			report.Ambiguous++
			if recLog != nil {
				recLog.Warnw("reference ambiguous", "field", field, "candidates", len(candidates))
			}
			if im.onAmbiguous == OnFail {
				report.Errors = append(report.Errors, RecordError{
					Index: idx, OriginalID: originalID, Kind: AmbiguousReference,
					Message: fmt.Sprintf("field %s: %d candidates", field, len(candidates)),
				})
				return recordFailed, NewError(AmbiguousReference, "field %s on record %d: %d candidates", field, idx, len(candidates))
			}
			posted.Set(field, nil)
		case Carried:
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"record %d field %s: no reference metadata, value carried through verbatim", idx, field))
		}
	}

	targetBase, ok := siblingCollectionURL(im.targetURL, im.resourceType)
	if !ok {
		if recLog != nil {
			recLog.Errorw("cannot build target URL", "resource_type", im.resourceType)
		}
		report.Errors = append(report.Errors, RecordError{
			Index: idx, OriginalID: originalID, Kind: UpstreamRejected,
			Message: fmt.Sprintf("resource type %q is not a valid URL path segment", im.resourceType),
		})
		return recordFailed, nil
	}
	created, err := im.poster.Post(ctx, targetBase, posted)
	if err != nil {
		if recLog != nil {
			recLog.Errorw("post failed", "error", err)
		}
		report.Errors = append(report.Errors, RecordError{
			Index: idx, OriginalID: originalID, Kind: UpstreamRejected, Message: err.Error(),
		})
		return recordFailed, nil
	}

	if originalID != "" {
		im.sessionIDMap[originalID] = created.GetString(linkrecord.FieldID)
	}
	if recLog != nil {
		recLog.Debugw("record posted", "new_id", created.GetString(linkrecord.FieldID))
	}
	return recordPosted, nil
}

// fieldResolution is one field's resolveField result, kept alongside its
// index so resolveFields can report results in fkFields order regardless of
// which goroutine finished first.
type fieldResolution struct {
	outcome    ResolutionOutcome
	resolvedID string
	candidates []Candidate
	err        error
}

// resolveFields runs resolveField for every field in fields concurrently,
// bounded by im.maxFanout in-flight lookups at once (§5), and joins before
// returning. Each field's S0 check only reads im.sessionIDMap — records are
// processed strictly one at a time and the map is only written after a
// record's POST succeeds, so concurrent reads here never race a write.
// Results are returned in the same order as fields, independent of
// completion order, so callers get deterministic trace ordering.
func (im *importer) resolveFields(ctx context.Context, rec *linkrecord.Record, fields []string) []fieldResolution {
	results := make([]fieldResolution, len(fields))
	if len(fields) == 0 {
		return results
	}

	gate := make(chan struct{}, im.maxFanout)
	var wg sync.WaitGroup
	for i, field := range fields {
		i, field := i, field
		rawValue := rec.GetString(field)
		classification := fk.Classify(field, rawValue)

		wg.Add(1)
		gate <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-gate }()
			outcome, resolvedID, candidates, err := im.resolveField(ctx, rec, field, rawValue, classification)
			results[i] = fieldResolution{outcome: outcome, resolvedID: resolvedID, candidates: candidates, err: err}
		}()
	}
	wg.Wait()
	return results
}

// resolveField runs the S0/S1/S2 state machine for one field.
func (im *importer) resolveField(ctx context.Context, rec *linkrecord.Record, field, rawValue string, classification fk.Classification) (ResolutionOutcome, string, []Candidate, error) {
	refResourceType, lookupField, lookupValue, refOriginalID, hasRef := referenceFor(rec, field)

	// S0: self-FK bypass via the session id map.
	if classification.Kind == fk.SelfFK {
		candidateOriginal := rawValue
		if hasRef && refOriginalID != "" {
			candidateOriginal = refOriginalID
		}
		if mapped, ok := im.sessionIDMap[candidateOriginal]; ok {
			return Resolved, mapped, nil, nil
		}
	}

	// S1: lookup query via reference metadata.
	if hasRef {
		lookupResourceType := refResourceType
		if lookupResourceType == "" {
			lookupResourceType = classification.ResourceType
		}
		baseURL, ok := siblingCollectionURL(im.targetURL, lookupResourceType)
		if !ok {
			// An invalid resource type (e.g. an FK field name that doesn't
			// infer to a sane collection segment) can't be queried; the
			// reference is unresolvable, same as a zero-result lookup.
			return Missing, "", nil, nil
		}
		results, err := im.poster.Query(ctx, baseURL, lookupField, fmt.Sprintf("%v", lookupValue))
		if err != nil {
			return "", "", nil, err
		}
		switch len(results) {
		case 0:
			return Missing, "", nil, nil
		case 1:
			return Resolved, results[0].GetString(linkrecord.FieldID), nil, nil
		default:
			n := len(results)
			if n > MaxAmbiguousCandidates {
				n = MaxAmbiguousCandidates
			}
			candidates := make([]Candidate, 0, n)
			for _, cand := range results[:n] {
				fields := map[string]any{lookupField: cand.GetString(lookupField)}
				candidates = append(candidates, Candidate{ID: cand.GetString(linkrecord.FieldID), Fields: fields})
			}
			return Ambiguous, "", candidates, nil
		}
	}

	// S2: no metadata, carried through verbatim.
	return Carried, "", nil, nil
}

// referenceFor reads _references[field], tolerating both the in-process
// *linkrecord.Record shape the enricher attaches and the map[string]any
// shape a JSON round-trip produces.
func referenceFor(rec *linkrecord.Record, field string) (resourceType, lookupField string, lookupValue any, originalID string, ok bool) {
	refsAny, present := rec.Get(linkrecord.FieldReferences)
	if !present {
		return "", "", nil, "", false
	}

	var entryAny any
	switch refs := refsAny.(type) {
	case *linkrecord.Record:
		entryAny, ok = refs.Get(field)
	case map[string]any:
		entryAny, ok = refs[field]
	default:
		ok = false
	}
	if !ok {
		return "", "", nil, "", false
	}

	switch entry := entryAny.(type) {
	case *linkrecord.Record:
		return entry.GetString("resource_type"), entry.GetString("lookup_field"), mustGet(entry, "lookup_value"), entry.GetString("original_id"), true
	case map[string]any:
		rt, _ := entry["resource_type"].(string)
		lf, _ := entry["lookup_field"].(string)
		oid, _ := entry["original_id"].(string)
		return rt, lf, entry["lookup_value"], oid, true
	default:
		return "", "", nil, "", false
	}
}

func mustGet(rec *linkrecord.Record, field string) any {
	v, _ := rec.Get(field)
	return v
}

// orderRecords applies the Prepare phase: if any record carries a self-FK,
// run the topological sorter (C5); otherwise input order stands unchanged.
func orderRecords(records []*linkrecord.Record, detectCycles bool) ([]*linkrecord.Record, []string) {
	hasSelfFK := false
	for _, rec := range records {
		if _, field := rec.ParentRef(); field != "" {
			hasSelfFK = true
			break
		}
	}
	if !hasSelfFK {
		return records, nil
	}

	ids := make([]string, len(records))
	parentIDs := make([]string, len(records))
	byID := make(map[string]*linkrecord.Record, len(records))
	for i, rec := range records {
		id := rec.OriginalID()
		ids[i] = id
		parentRef, _ := rec.ParentRef()
		parentIDs[i] = parentRef
		if id != "" {
			byID[id] = rec
		}
	}

	g := graph.Build(ids, parentIDs)
	sorted, cycleInfo := g.TopologicalSort(detectCycles)

	var warnings []string
	if cycleInfo != nil {
		warnings = append(warnings, (&graph.CycleError{Info: cycleInfo}).Error())
	}

	ordered := make([]*linkrecord.Record, 0, len(sorted))
	for _, id := range sorted {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, warnings
}
