package migrate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dbsmedya/linkbridge/internal/codec/diagram"
	"github.com/dbsmedya/linkbridge/internal/enrich"
	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/logger"
	"github.com/dbsmedya/linkbridge/internal/lookup"
	"github.com/dbsmedya/linkbridge/internal/sqlutil"
)

// Fetcher is the collaborator contract export needs from the REST client
// (A3): list the source collection, and fetch a single record by id for
// enrichment referent lookups. *restclient.Client satisfies this.
type Fetcher interface {
	List(ctx context.Context, baseURL string) ([]*linkrecord.Record, error)
	Get(ctx context.Context, baseURL, id string) (*linkrecord.Record, bool, error)
}

// ExportRequest carries every parameter the export orchestrator (C9) needs.
type ExportRequest struct {
	TargetURL string
	Format    string
	Enrich    bool
	Tree      bool
	Dialect   diagram.Dialect
	Policy    *lookup.Policy
	MaxFanout int
	// RequestID scopes Logger, mirroring ImportRequest. Optional; a nil
	// Logger disables per-request logging entirely.
	RequestID string
	Logger    *logger.Logger
}

// ExportResult is what C9 hands back to the HTTP layer.
type ExportResult struct {
	Bytes       []byte
	ContentType string
	Filename    string
	Warnings    []string
}

// Export implements the Export Orchestrator (C9) per §4.9.
func Export(ctx context.Context, fetcher Fetcher, req ExportRequest) (*ExportResult, error) {
	log := req.Logger
	if log != nil {
		log = log.WithRequest(req.RequestID)
	}

	records, err := fetcher.List(ctx, req.TargetURL)
	if err != nil {
		if log != nil {
			log.Errorw("source fetch failed", "url", req.TargetURL, "error", err)
		}
		return nil, NewError(UpstreamUnavailable, "fetching %s: %v", req.TargetURL, err)
	}

	resourceType := resourceTypeFromURL(req.TargetURL)
	if log != nil {
		log.Infow("export starting", "resource_type", resourceType, "records", len(records), "format", req.Format)
	}

	var warnings []string

	if req.Enrich && req.Format == FormatJSON {
		fetchByID := func(ctx context.Context, rt, id string) (*linkrecord.Record, bool, error) {
			base, ok := siblingCollectionURL(req.TargetURL, rt)
			if !ok {
				return nil, false, nil
			}
			return fetcher.Get(ctx, base, id)
		}
		enricher := enrich.New(fetchByID, req.Policy, req.MaxFanout)
		if err := enricher.Enrich(ctx, resourceType, records); err != nil {
			// Enrichment failures are non-fatal per §4.3: the export still
			// proceeds, unenriched, with a warning.
			warnings = append(warnings, fmt.Sprintf("enrichment incomplete: %v", err))
			if log != nil {
				log.Warnw("enrichment incomplete", "error", err)
			}
		}
	}

	c, err := NewCodec(req.Format, CodecOptions{
		Nested:       req.Tree,
		Dialect:      req.Dialect,
		ResourceType: resourceType,
		Policy:       req.Policy,
	})
	if err != nil {
		return nil, err
	}

	body, err := c.Encode(records)
	if err != nil {
		return nil, NewError(DecodeError, "encoding export: %v", err)
	}

	filename := fmt.Sprintf("%s_export.%s", resourceType, c.Extension())
	if log != nil {
		log.Infow("export complete", "filename", filename, "bytes", len(body))
	}

	return &ExportResult{
		Bytes:       body,
		ContentType: c.MediaType(),
		Filename:    filename,
		Warnings:    warnings,
	}, nil
}

// ResourceTypeFromURL exposes resourceTypeFromURL to callers outside the
// package (httpapi needs the resource type for its access-control check
// before it has fetched anything).
func ResourceTypeFromURL(rawURL string) string {
	return resourceTypeFromURL(rawURL)
}

// resourceTypeFromURL infers the collection name from a base URL's final
// path segment, e.g. "https://src.example/api/v1/teams" -> "teams".
func resourceTypeFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	trimmed := strings.Trim(u.Path, "/")
	segments := strings.Split(trimmed, "/")
	return segments[len(segments)-1]
}

// siblingCollectionURL rewrites targetURL's final path segment to a
// different resource type's collection, so the enricher's FetchByID can
// reach an external FK's referent collection from the record being
// enriched's own base URL (e.g. "…/api/v1/tasks" -> "…/api/v1/users").
//
// resourceType here can originate from fk.Classify's field-name inference —
// a value pulled from a field name on an imported record, not a fixed
// literal — so it is sanity-checked with sqlutil.IsValidIdentifier before
// being interpolated into the path. A malformed resource type (stray
// slashes, query separators, etc.) makes ok false and callers treat the
// referent as unreachable rather than build a URL pointing somewhere
// unintended.
func siblingCollectionURL(targetURL, resourceType string) (rewritten string, ok bool) {
	if !sqlutil.IsValidIdentifier(resourceType) {
		return "", false
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return "", false
	}
	trimmed := strings.Trim(u.Path, "/")
	segments := strings.Split(trimmed, "/")
	if len(segments) == 0 {
		return "", false
	}
	segments[len(segments)-1] = resourceType
	u.Path = "/" + strings.Join(segments, "/")
	return u.String(), true
}
