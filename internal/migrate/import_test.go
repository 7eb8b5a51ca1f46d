package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// fakePoster is an in-memory Poster: POST assigns a deterministic target id
// and stores the record; Query filters the store by field/value.
type fakePoster struct {
	store    []*linkrecord.Record
	nextID   int
	queryFns map[string]func(field, value string) []*linkrecord.Record
}

func newFakePoster() *fakePoster {
	return &fakePoster{}
}

func (p *fakePoster) Query(ctx context.Context, baseURL, field, value string) ([]*linkrecord.Record, error) {
	var out []*linkrecord.Record
	for _, rec := range p.store {
		if rec.GetString(field) == value {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (p *fakePoster) Post(ctx context.Context, baseURL string, body *linkrecord.Record) (*linkrecord.Record, error) {
	p.nextID++
	created := body.Clone()
	id := "t" + itoa(p.nextID)
	created.Set(linkrecord.FieldID, id)
	p.store = append(p.store, created)
	return created, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func rec(fields map[string]any) *linkrecord.Record {
	r := linkrecord.New()
	for _, k := range []string{"_original_id", "id", "name", "email", "parent_id", "assigned_to_id", "_references"} {
		if v, ok := fields[k]; ok {
			r.Set(k, v)
		}
	}
	return r
}

// TestImportFlatNoFK covers scenario S1: two FK-free records import cleanly
// in order, with two session id map entries.
func TestImportFlatNoFK(t *testing.T) {
	poster := newFakePoster()
	body := []byte(`[{"id":"u1","email":"a@x"},{"id":"u2","email":"b@x"}]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL: "https://target.example/api/users",
		Format:    FormatJSON,
		Body:      body,
		Policy:    lookup.NewPolicy(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 2, report.Successful)
	assert.Equal(t, 0, report.Failed)
	assert.Len(t, report.SessionIDMap, 2)
	assert.Equal(t, "t1", report.SessionIDMap["u1"])
	assert.Equal(t, "t2", report.SessionIDMap["u2"])
}

// TestImportTreeWithSelfFK covers scenario S2: a four-node tree posts in
// parent-before-child order and rebinds parent_id to the freshly assigned
// target id via the session id map.
func TestImportTreeWithSelfFK(t *testing.T) {
	poster := newFakePoster()
	body := []byte(`[
		{"_original_id":"c1","name":"Backend","parent_id":null},
		{"_original_id":"c2","name":"API","parent_id":"c1"},
		{"_original_id":"c3","name":"DB","parent_id":"c1"},
		{"_original_id":"c4","name":"REST","parent_id":"c2"}
	]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL:    "https://target.example/api/teams",
		Format:       FormatJSON,
		Body:         body,
		DetectCycles: true,
		Policy:       lookup.NewPolicy(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, report.Successful)
	require.Len(t, poster.store, 4)

	// c1 posts first and has no parent_id.
	v0, _ := poster.store[0].Get("parent_id")
	assert.Nil(t, v0)

	// c2's posted parent_id must equal c1's assigned target id.
	c1ID := report.SessionIDMap["c1"]
	var c2Posted, c3Posted, c4Posted *linkrecord.Record
	for _, posted := range poster.store {
		switch posted.GetString("name") {
		case "API":
			c2Posted = posted
		case "DB":
			c3Posted = posted
		case "REST":
			c4Posted = posted
		}
	}
	require.NotNil(t, c2Posted)
	require.NotNil(t, c3Posted)
	require.NotNil(t, c4Posted)

	v, _ := c2Posted.Get("parent_id")
	assert.Equal(t, c1ID, v)

	v, _ = c3Posted.Get("parent_id")
	assert.Equal(t, c1ID, v)

	c2ID := report.SessionIDMap["c2"]
	v, _ = c4Posted.Get("parent_id")
	assert.Equal(t, c2ID, v)
}

// TestImportAmbiguousSkip covers scenario S3: an ambiguous external FK
// lookup under on_ambiguous=skip nulls the field but still imports the
// record successfully.
func TestImportAmbiguousSkip(t *testing.T) {
	poster := newFakePoster()
	poster.store = append(poster.store,
		rec(map[string]any{"id": "x1", "email": "j@x"}),
		rec(map[string]any{"id": "x2", "email": "j@x"}),
	)

	body := []byte(`[{"id":"task1","assigned_to_id":"u1","_references":{"assigned_to_id":{"resource_type":"users","lookup_field":"email","lookup_value":"j@x"}}}]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL:   "https://target.example/api/tasks",
		Format:      FormatJSON,
		Body:        body,
		OnAmbiguous: OnSkip,
		Policy:      lookup.NewPolicy(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Ambiguous)
	require.Len(t, report.Traces, 1)
	assert.Equal(t, Ambiguous, report.Traces[0].Outcome)
	assert.Len(t, report.Traces[0].Candidates, 2)
}

// TestImportAmbiguousFail covers scenario S4: on_ambiguous=fail aborts the
// whole import with zero successes and one AmbiguousReference error.
func TestImportAmbiguousFail(t *testing.T) {
	poster := newFakePoster()
	poster.store = append(poster.store,
		rec(map[string]any{"id": "x1", "email": "j@x"}),
		rec(map[string]any{"id": "x2", "email": "j@x"}),
	)

	body := []byte(`[{"id":"task1","assigned_to_id":"u1","_references":{"assigned_to_id":{"resource_type":"users","lookup_field":"email","lookup_value":"j@x"}}}]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL:   "https://target.example/api/tasks",
		Format:      FormatJSON,
		Body:        body,
		OnAmbiguous: OnFail,
		Policy:      lookup.NewPolicy(nil),
	})
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Successful)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, AmbiguousReference, report.Errors[0].Kind)
}

// TestImportEmptyStringFKCarriesThroughUntouched covers the Classify-level
// rule that an empty-string FK value is not a candidate FK at all (unlike
// a missing one, it needs no resolution trace and issues no lookup query):
// the field posts with its original empty-string value untouched.
func TestImportEmptyStringFKCarriesThroughUntouched(t *testing.T) {
	poster := newFakePoster()
	body := []byte(`[{"id":"task1","assigned_to_id":""}]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL: "https://target.example/api/tasks",
		Format:    FormatJSON,
		Body:      body,
		Policy:    lookup.NewPolicy(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Successful)
	assert.Empty(t, report.Traces)

	require.Len(t, poster.store, 1)
	v, _ := poster.store[0].Get("assigned_to_id")
	assert.Equal(t, "", v)
}

// TestImportCycleDetection covers scenario S5: a two-node parent_id cycle
// degrades the Prepare phase to input order and records a cycle warning.
// The first record's parent has not been posted yet, so its parent_id
// carries through verbatim with a per-field warning; the second record's
// parent is the first one, so its parent_id resolves via the session id map.
func TestImportCycleDetection(t *testing.T) {
	poster := newFakePoster()
	body := []byte(`[{"_original_id":"a","parent_id":"b"},{"_original_id":"b","parent_id":"a"}]`)

	report, err := Import(context.Background(), poster, ImportRequest{
		TargetURL:    "https://target.example/api/nodes",
		Format:       FormatJSON,
		Body:         body,
		DetectCycles: true,
		Policy:       lookup.NewPolicy(nil),
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "cycle detected")
	assert.Equal(t, 2, report.Successful)
}
