package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dbsmedya/linkbridge/internal/migrate"
	"github.com/dbsmedya/linkbridge/internal/restclient"
)

// newRequestID generates a short random id scoping one request's log lines.
func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

// writeError writes a JSON error body matching the taxonomy of spec.md §7.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// queryBool parses a boolean query parameter, defaulting to def when the
// parameter is absent or unparsable.
func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// handleExport implements GET /export per spec.md §6, driving the Export
// Orchestrator (C9).
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sourceURL := q.Get("url")
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: url")
		return
	}

	resourceType := migrate.ResourceTypeFromURL(sourceURL)
	cred, ok := s.checkAccess(w, r, "export", resourceType)
	if !ok {
		return
	}

	dialect, err := migrate.ParseDialect(q.Get("diagram_type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy, err := parseLookupConfig(q.Get("lookup_config"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lookup_config: %v", err))
		return
	}

	format := q.Get("type")
	switch format {
	case "", "json":
		format = migrate.FormatJSON
	case "csv":
		format = migrate.FormatCSV
	case "mermaid":
		format = migrate.FormatMermaid
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported type %q", format))
		return
	}

	client := restclient.New(string(cred))
	requestID := newRequestID()

	result, err := migrate.Export(r.Context(), client, migrate.ExportRequest{
		TargetURL: sourceURL,
		Format:    format,
		Enrich:    queryBool(r, "enrich", true),
		Tree:      queryBool(r, "tree", false),
		Dialect:   dialect,
		Policy:    policy,
		MaxFanout: s.Config.Processing.MaxFanout,
		RequestID: requestID,
		Logger:    s.Logger,
	})
	if err != nil {
		writeMigrateError(w, err)
		return
	}

	for _, warning := range result.Warnings {
		s.Logger.WithRequest(requestID).Warnw("export warning", "resource_type", resourceType, "warning", warning)
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Bytes)
}

// handleImport implements POST /import per spec.md §6, driving the Import
// Orchestrator (C10). The request body is multipart with a "file" part
// carrying the encoded record set.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	targetURL := q.Get("url")
	if targetURL == "" {
		writeError(w, http.StatusBadRequest, "missing required query parameter: url")
		return
	}

	resourceType := migrate.ResourceTypeFromURL(targetURL)
	cred, ok := s.checkAccess(w, r, "import", resourceType)
	if !ok {
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing multipart file part: %v", err))
		return
	}
	defer file.Close()

	body, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("reading uploaded file: %v", err))
		return
	}

	policy, err := parseLookupConfig(q.Get("lookup_config"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid lookup_config: %v", err))
		return
	}

	format := q.Get("type")
	switch format {
	case "", "json":
		format = migrate.FormatJSON
	case "csv":
		format = migrate.FormatCSV
	case "mermaid":
		format = migrate.FormatMermaid
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported type %q", format))
		return
	}

	onAmbiguous, err := parsePolicy(q.Get("on_ambiguous"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	onMissing, err := parsePolicy(q.Get("on_missing"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := restclient.New(string(cred))

	report, err := migrate.Import(r.Context(), client, migrate.ImportRequest{
		TargetURL:    targetURL,
		Format:       format,
		Body:         body,
		OnAmbiguous:  onAmbiguous,
		OnMissing:    onMissing,
		DetectCycles: queryBool(r, "detect_cycles", true),
		Policy:       policy,
		MaxFanout:    s.Config.Processing.MaxFanout,
		RequestID:    newRequestID(),
		Logger:       s.Logger,
	})
	if err != nil {
		if report != nil {
			// A fatal on_ambiguous=fail/on_missing=fail breach still carries
			// a partial report (spec.md §7: "partial successes are always
			// reported with a full id map for what did succeed").
			writeReportWithStatus(w, report, statusForMigrateErr(err))
			return
		}
		writeMigrateError(w, err)
		return
	}

	writeReportWithStatus(w, report, http.StatusOK)
}

func parsePolicy(raw string) (migrate.OnPolicy, error) {
	switch raw {
	case "", "skip":
		return migrate.OnSkip, nil
	case "fail":
		return migrate.OnFail, nil
	default:
		return "", fmt.Errorf("unsupported policy %q: must be skip or fail", raw)
	}
}

func writeReportWithStatus(w http.ResponseWriter, report *migrate.Report, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(report)
}

func statusForMigrateErr(err error) int {
	if migErr, ok := err.(*migrate.Error); ok {
		return migErr.Kind.StatusClass()
	}
	return http.StatusBadRequest
}

// writeMigrateError maps a request-level *migrate.Error to its status class
// per the Kind taxonomy of spec.md §7; any other error is an
// upstream-unavailable 502 by default.
func writeMigrateError(w http.ResponseWriter, err error) {
	if migErr, ok := err.(*migrate.Error); ok {
		writeError(w, migErr.Kind.StatusClass(), migErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
