package enrich

import (
	"context"
	"testing"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

func TestEnrichSetsOriginalID(t *testing.T) {
	rec := linkrecord.New()
	rec.Set("id", "t1")
	rec.Set("name", "Backend")

	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		t.Fatalf("fetch should not be called, got (%s, %s)", resourceType, id)
		return nil, false, nil
	}, lookup.NewPolicy(nil), 0)

	if err := e.Enrich(context.Background(), "teams", []*linkrecord.Record{rec}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec.GetString(linkrecord.FieldOriginalID) != "t1" {
		t.Errorf("_original_id = %q, want t1", rec.GetString(linkrecord.FieldOriginalID))
	}
}

func TestEnrichExternalFKAttachesReference(t *testing.T) {
	rec := linkrecord.New()
	rec.Set("id", "t1")
	rec.Set("assigned_to_id", "u1")

	fetchCount := 0
	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		fetchCount++
		if resourceType != "assigned_tos" {
			t.Errorf("resourceType = %q, want assigned_tos", resourceType)
		}
		user := linkrecord.New()
		user.Set("id", "u1")
		user.Set("email", "j@x")
		return user, true, nil
	}, lookup.NewPolicy(nil), 0)

	if err := e.Enrich(context.Background(), "tasks", []*linkrecord.Record{rec}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	refsAny, ok := rec.Get(linkrecord.FieldReferences)
	if !ok {
		t.Fatal("expected _references to be set")
	}
	refs := refsAny.(*linkrecord.Record)
	entryAny, ok := refs.Get("assigned_to_id")
	if !ok {
		t.Fatal("expected _references.assigned_to_id to be set")
	}
	entry := entryAny.(*linkrecord.Record)
	if entry.GetString("lookup_field") != "email" || entry.GetString("lookup_value") != "j@x" {
		t.Errorf("entry = %+v, want lookup_field=email lookup_value=j@x", entry)
	}
}

func TestEnrichSelfFKRecordsFallbackLookup(t *testing.T) {
	rec := linkrecord.New()
	rec.Set("id", "c2")
	rec.Set("parent_id", "c1")

	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		t.Fatal("self-FK should not issue a fetch")
		return nil, false, nil
	}, lookup.NewPolicy(nil), 0)

	if err := e.Enrich(context.Background(), "teams", []*linkrecord.Record{rec}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	refsAny, _ := rec.Get(linkrecord.FieldReferences)
	refs := refsAny.(*linkrecord.Record)
	entryAny, _ := refs.Get("parent_id")
	entry := entryAny.(*linkrecord.Record)
	if entry.GetString("resource_type") != "teams" {
		t.Errorf("resource_type = %q, want teams", entry.GetString("resource_type"))
	}
	if entry.GetString("lookup_field") != linkrecord.FieldOriginalID {
		t.Errorf("lookup_field = %q, want _original_id", entry.GetString("lookup_field"))
	}
}

func TestEnrichSkipsNotFoundReferentSilently(t *testing.T) {
	rec := linkrecord.New()
	rec.Set("id", "t1")
	rec.Set("owner_id", "missing")

	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		return nil, false, nil
	}, lookup.NewPolicy(nil), 0)

	if err := e.Enrich(context.Background(), "teams", []*linkrecord.Record{rec}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec.Has(linkrecord.FieldReferences) {
		t.Error("expected no _references for an unresolvable FK")
	}
}

func TestEnrichSkipsEmptyStringFK(t *testing.T) {
	rec := linkrecord.New()
	rec.Set("id", "t1")
	rec.Set("owner_id", "")

	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		t.Fatal("an empty-string FK is not a candidate FK and should not issue a fetch")
		return nil, false, nil
	}, lookup.NewPolicy(nil), 0)

	if err := e.Enrich(context.Background(), "teams", []*linkrecord.Record{rec}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if rec.Has(linkrecord.FieldReferences) {
		t.Error("expected no _references for an empty-string FK")
	}
}

func TestEnrichCachesFetchByResourceTypeAndID(t *testing.T) {
	recA := linkrecord.New()
	recA.Set("id", "t1")
	recA.Set("owner_id", "u1")
	recB := linkrecord.New()
	recB.Set("id", "t2")
	recB.Set("owner_id", "u1")

	fetchCount := 0
	e := New(func(ctx context.Context, resourceType, id string) (*linkrecord.Record, bool, error) {
		fetchCount++
		user := linkrecord.New()
		user.Set("id", "u1")
		user.Set("email", "j@x")
		return user, true, nil
	}, lookup.NewPolicy(nil), 1)

	if err := e.Enrich(context.Background(), "teams", []*linkrecord.Record{recA, recB}); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if fetchCount != 1 {
		t.Errorf("fetchCount = %d, want 1 (cached)", fetchCount)
	}
}
