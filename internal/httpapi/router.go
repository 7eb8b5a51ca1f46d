// Package httpapi exposes linkbridge's two operations — export and import —
// as the HTTP surface named in spec.md §6, plus the ambient health/version
// routes a real HTTP service carries. The router and middleware stack is
// built on gorilla/mux + gorilla/handlers.
package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/dbsmedya/linkbridge/internal/auth"
	"github.com/dbsmedya/linkbridge/internal/config"
	"github.com/dbsmedya/linkbridge/internal/logger"
	"github.com/dbsmedya/linkbridge/internal/lookup"
)

// Server bundles everything a request handler needs: config for the
// processing fan-out width, a logger, and the two named-but-unspecified
// collaborators (§1) for credential and permission checks.
type Server struct {
	Config    *config.Config
	Logger    *logger.Logger
	Access    auth.AccessController
	Validator auth.TokenValidator
	Version   string
	Commit    string
}

// NewRouter builds the complete mux.Router: /export, /import, /healthz,
// /version, wrapped in gorilla/handlers' combined-log-format middleware and
// a panic recovery layer that converts a panic to a 500 instead of closing
// the connection.
func NewRouter(s *Server) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/import", s.handleImport).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	var logOutput io.Writer = os.Stdout
	logged := handlers.CombinedLoggingHandler(logOutput, r)
	return s.recover(logged)
}

// recover converts a panic in any handler into a 500 response rather than
// an aborted connection, logging the recovered value at error level.
func (s *Server) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.Logger.Errorw("recovered from panic", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// checkAccess consults the access-control collaborator once per request
// before any outbound I/O, per spec.md §6. A deny short-circuits with a
// 403-class response and the handler returns without touching source or
// target.
func (s *Server) checkAccess(w http.ResponseWriter, r *http.Request, action, resourceType string) (auth.Credential, bool) {
	cred := auth.CredentialFromRequest(r)

	if err := s.Validator.Validate(r.Context(), cred); err != nil {
		writeError(w, http.StatusUnauthorized, fmt.Sprintf("invalid credential: %v", err))
		return "", false
	}
	if err := s.Access.Allow(r.Context(), cred, action, resourceType); err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return "", false
	}
	return cred, true
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"version":%q,"commit":%q,"go_version":%q,"os_arch":"%s/%s"}`,
		s.Version, s.Commit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// parseLookupConfig decodes the lookup_config query parameter (JSON text
// per spec.md §6) into a *lookup.Policy. An empty or absent parameter
// yields a policy with no overrides, falling through to the built-in
// defaults.
func parseLookupConfig(raw string) (*lookup.Policy, error) {
	if raw == "" {
		return lookup.NewPolicy(nil), nil
	}
	overrides, err := lookup.ParseConfig([]byte(raw))
	if err != nil {
		return nil, err
	}
	return lookup.NewPolicy(overrides), nil
}
