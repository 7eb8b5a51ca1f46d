// Package restclient provides an HTTP client wrapper for talking to source
// and target REST endpoints, with a connect retry-with-backoff shape
// repointed from connection establishment to outbound HTTP calls.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dbsmedya/linkbridge/internal/linkrecord"
)

// StatusError is returned when an upstream call completes but returns a
// non-2xx status. It is the collaborator-level analogue of spec's
// UpstreamRejected taxonomy entry; callers classify it further.
type StatusError struct {
	StatusCode int
	Body       string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client wraps *http.Client with a per-request timeout, retry-with-backoff for
// transient transport errors on reads, verbatim credential forwarding, and
// a single-attempt path for the non-idempotent target POST.
type Client struct {
	http       *http.Client
	credential string
	maxRetries int
	backoff    time.Duration
}

// New creates a Client with the given forwarded credential (the value of the
// incoming request's Authorization header, forwarded verbatim on every
// outbound call per spec's authentication collaborator contract).
func New(credential string) *Client {
	return &Client{
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		credential: credential,
		maxRetries: 3,
		backoff:    200 * time.Millisecond,
	}
}

// WithCredential returns a shallow copy of the client scoped to a different
// forwarded credential, leaving the underlying *http.Client (and its
// connection pool) shared.
func (c *Client) WithCredential(credential string) *Client {
	clone := *c
	clone.credential = credential
	return &clone
}

// List fetches the full record list at baseURL (GET <base>).
func (c *Client) List(ctx context.Context, baseURL string) ([]*linkrecord.Record, error) {
	return c.fetchList(ctx, baseURL)
}

// Get fetches a single record by id (GET <base>/<id>). The second return
// value is false when the upstream reports 404, which is not itself an
// error — callers treat "not found" as a normal outcome.
func (c *Client) Get(ctx context.Context, baseURL, id string) (*linkrecord.Record, bool, error) {
	fullURL := strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(id)

	resp, err := c.doWithRetry(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Body: string(body), URL: fullURL}
	}

	rec := linkrecord.New()
	if err := json.NewDecoder(resp.Body).Decode(rec); err != nil {
		return nil, false, fmt.Errorf("decode response from %s: %w", fullURL, err)
	}
	return rec, true, nil
}

// Query issues a filtered list fetch (GET <base>?<field>=<value>).
func (c *Client) Query(ctx context.Context, baseURL, field, value string) ([]*linkrecord.Record, error) {
	fullURL := strings.TrimRight(baseURL, "/") + "?" + url.Values{field: {value}}.Encode()
	return c.fetchList(ctx, fullURL)
}

// Post creates a new record (POST <base>), returning the record as the
// upstream echoed it back (expected to carry the newly assigned `id`).
//
// Unlike List/Get/Query, Post is not retried: per spec.md §1's explicit
// Non-goal ("does not retry target writes"), a transient failure after the
// target has already written the record must not resubmit the same POST
// body and risk a duplicate record. doOnce issues a single attempt.
func (c *Client) Post(ctx context.Context, baseURL string, body *linkrecord.Record) (*linkrecord.Record, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal record for post: %w", err)
	}

	resp, err := c.doOnce(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody), URL: baseURL}
	}

	rec := linkrecord.New()
	if err := json.NewDecoder(resp.Body).Decode(rec); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", baseURL, err)
	}
	return rec, nil
}

func (c *Client) fetchList(ctx context.Context, fullURL string) ([]*linkrecord.Record, error) {
	resp, err := c.doWithRetry(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body), URL: fullURL}
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", fullURL, err)
	}

	records := make([]*linkrecord.Record, 0, len(raw))
	for _, r := range raw {
		rec := linkrecord.New()
		if err := json.Unmarshal(r, rec); err != nil {
			return nil, fmt.Errorf("decode record from %s: %w", fullURL, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// newRequest builds one outbound request, applying the standard headers and
// the forwarded credential.
func (c *Client) newRequest(ctx context.Context, method, fullURL string, bodyBytes []byte) (*http.Request, error) {
	var reqBody io.Reader
	if bodyBytes != nil {
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.credential != "" {
		req.Header.Set("Authorization", c.credential)
	}
	return req, nil
}

// doWithRetry issues the request, retrying transient transport failures
// (connection refused, timeout, DNS) with exponential backoff. Non-2xx
// responses are not retried — they're a completed round-trip, not a
// transport failure, and are returned to the caller to classify.
//
// Only used for idempotent reads (List/Get/Query); Post uses doOnce instead.
func (c *Client) doWithRetry(ctx context.Context, method, fullURL string, body io.Reader) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	backoff := c.backoff
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := c.newRequest(ctx, method, fullURL, bodyBytes)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if attempt < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("upstream %s unreachable after %d attempts: %w", fullURL, c.maxRetries, lastErr)
}

// doOnce issues the request a single time with no retry, for calls where
// resubmission on a transient failure could duplicate a non-idempotent
// side effect (the target-creating POST).
func (c *Client) doOnce(ctx context.Context, method, fullURL string, body io.Reader) (*http.Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	req, err := c.newRequest(ctx, method, fullURL, bodyBytes)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream %s unreachable: %w", fullURL, err)
	}
	return resp, nil
}
