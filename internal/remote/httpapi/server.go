// Package httpapi exposes a remote.Store over HTTP and provides the matching
// client, so devices can sync through a self-hosted server.
//
// Routes (all under /api/v1, bearer JWT required):
//
//	POST   /events   insert one record; 409 if the client_id exists
//	GET    /events   list the caller's records, optionally ?after=<RFC 3339>
//	DELETE /events   delete all of the caller's records
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/roach88/grove/internal/remote"
)

// insertRequest is the POST body.
type insertRequest struct {
	Type            string          `json:"type" validate:"required"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
	ClientID        string          `json:"client_id"`
	ClientTimestamp string          `json:"client_timestamp" validate:"required"`
}

type listResponse struct {
	Records []remote.Record `json:"records"`
}

// Server serves a remote.Store.
type Server struct {
	store    remote.Store
	secret   string
	validate *validator.Validate
	logger   *slog.Logger
	router   *mux.Router
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer builds the router. secret verifies bearer tokens.
func NewServer(store remote.Store, secret string, opts ...ServerOption) *Server {
	s := &Server{
		store:    store,
		secret:   secret,
		validate: validator.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.Use(loggerMiddleware(s.logger))
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware(secret))
	api.HandleFunc("/events", s.insert).Methods(http.MethodPost)
	api.HandleFunc("/events", s.list).Methods(http.MethodGet)
	api.HandleFunc("/events", s.deleteAll).Methods(http.MethodDelete)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) insert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Insert(r.Context(), remote.Record{
		UserID:          userID(r),
		Type:            req.Type,
		Payload:         req.Payload,
		ClientID:        req.ClientID,
		ClientTimestamp: req.ClientTimestamp,
	})
	if errors.Is(err, remote.ErrDuplicate) {
		writeError(w, http.StatusConflict, "record already exists")
		return
	}
	if err != nil {
		s.logger.Error("insert failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to insert record")
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := remote.Query{UserID: userID(r)}
	if after := r.URL.Query().Get("after"); after != "" {
		t, err := time.Parse(time.RFC3339Nano, after)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after parameter")
			return
		}
		q.After = t
	}

	records, err := s.store.Select(r.Context(), q)
	if err != nil {
		s.logger.Error("select failed", "user_id", q.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []remote.Record{}
	}

	writeJSON(w, http.StatusOK, listResponse{Records: records})
}

func (s *Server) deleteAll(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteAll(r.Context(), userID(r)); err != nil {
		s.logger.Error("delete failed", "user_id", userID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete records")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
