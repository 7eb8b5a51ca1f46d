package restclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
)

func TestListFetchesRecordsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"u1","email":"a@x"},{"id":"u2","email":"b@x"}]`))
	}))
	defer srv.Close()

	c := New("")
	records, err := c.List(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].GetString("id") != "u1" {
		t.Errorf("records[0].id = %q, want u1", records[0].GetString("id"))
	}
}

func TestGetReturnsNotFoundAsFalseNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("")
	rec, found, err := c.Get(context.Background(), srv.URL, "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
	if rec != nil {
		t.Error("rec != nil, want nil")
	}
}

func TestGetForwardsCredential(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"u1","email":"a@x"}`))
	}))
	defer srv.Close()

	c := New("Bearer secret-token")
	_, found, err := c.Get(context.Background(), srv.URL, "u1")
	if err != nil || !found {
		t.Fatalf("Get() = (_, %v, %v)", found, err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization header = %q, want 'Bearer secret-token'", gotAuth)
	}
}

func TestQueryEncodesFieldValue(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New("")
	_, err := c.Query(context.Background(), srv.URL, "email", "j@x")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gotQuery != "email=j%40x" {
		t.Errorf("query = %q, want email=j%%40x", gotQuery)
	}
}

func TestPostReturnsDecodedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "new-id", "name": body["name"]})
	}))
	defer srv.Close()

	c := New("")
	rec := linkrecord.New()
	rec.Set("name", "Backend")

	resp, err := c.Post(context.Background(), srv.URL, rec)
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if resp.GetString("id") != "new-id" {
		t.Errorf("resp.id = %q, want new-id", resp.GetString("id"))
	}
	if resp.GetString("name") != "Backend" {
		t.Errorf("resp.name = %q, want Backend", resp.GetString("name"))
	}
}

func TestPostNonSuccessReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad payload"))
	}))
	defer srv.Close()

	c := New("")
	_, err := c.Post(context.Background(), srv.URL, linkrecord.New())
	if err == nil {
		t.Fatal("Post() error = nil, want error")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", statusErr.StatusCode)
	}
}

func TestPostDoesNotRetryOnTransportFailure(t *testing.T) {
	// Post must never be retried: a transient failure after the target has
	// already written the record would resubmit the same body and create a
	// duplicate, which spec.md §1 explicitly rules out.
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("ResponseWriter does not support hijacking")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("hijack: %v", err)
		}
		conn.Close()
	}))
	defer srv.Close()

	c := New("")
	_, err := c.Post(context.Background(), srv.URL, linkrecord.New())
	if err == nil {
		t.Fatal("Post() error = nil, want error")
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want exactly 1 (no retry)", hits)
	}
}

func TestWithCredentialDoesNotMutateOriginal(t *testing.T) {
	c := New("original")
	c2 := c.WithCredential("replacement")

	if c.credential != "original" {
		t.Errorf("original client credential mutated to %q", c.credential)
	}
	if c2.credential != "replacement" {
		t.Errorf("clone credential = %q, want replacement", c2.credential)
	}
}
