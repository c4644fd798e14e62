// Package httpapi exposes the oracle host over HTTP: health, prometheus
// metrics, the stored price snapshot and raw host storage.
package httpapi

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/domain/ports"
	"github.com/reglet-dev/reglet-oracle/guest"
	"github.com/reglet-dev/reglet-oracle/infrastructure/metrics"
	"github.com/reglet-dev/reglet-oracle/storagekey"
)

// Server serves the oracle HTTP API.
type Server struct {
	ext     ports.Extension
	store   ports.StorageReader
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves /metrics and instruments every route.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server answering data requests through ext and storage
// requests from store.
func New(ext ports.Extension, store ports.StorageReader, opts ...Option) *Server {
	s := &Server{ext: ext, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/prices", s.handleGetPrices).Methods(http.MethodGet)
	r.HandleFunc("/prices/{id:[0-9]+}", s.handleGetPrice).Methods(http.MethodGet)
	r.HandleFunc("/data/current", s.handleCurrentID).Methods(http.MethodGet)
	r.HandleFunc("/data/{id:[0-9]+}", s.handleGetData).Methods(http.MethodGet)
	r.HandleFunc("/storage/{namespace}/{item}", s.handleGetStorage).Methods(http.MethodGet)

	if s.metrics == nil {
		return r
	}
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	return s.metrics.InstrumentHandler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	snap, err := guest.StoredPricesDetailed(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, entities.NewErrorDetail("request", "invalid data id"))
		return
	}
	q, err := guest.StoredQuote(r.Context(), s.store, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// dataResponse carries a source payload as hex.
type dataResponse struct {
	Value  string          `json:"value"`
	DataID entities.DataID `json:"data_id"`
}

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, entities.NewErrorDetail("request", "invalid data id"))
		return
	}
	client, err := guest.Negotiate(r.Context(), s.ext)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	value, err := client.RequestedOffchainData(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{DataID: id, Value: "0x" + hex.EncodeToString(value)})
}

func (s *Server) handleCurrentID(w http.ResponseWriter, r *http.Request) {
	client, err := guest.Negotiate(r.Context(), s.ext)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := client.CurrentDataID(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]entities.DataID{"data_id": id})
}

// storageResponse is a raw storage read.
type storageResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (s *Server) handleGetStorage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	key := storagekey.Derive(vars["namespace"], vars["item"])

	value, found, err := s.store.ReadStorage(r.Context(), key.Bytes())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		s.writeError(w, r, domainerrors.ErrStorageNotFound)
		return
	}
	writeJSON(w, http.StatusOK, storageResponse{Key: key.Hex(), Value: "0x" + hex.EncodeToString(value)})
}

// statusFor maps a failure to an HTTP status.
func statusFor(err error) int {
	var (
		moduleErr *domainerrors.ModuleError
		unimpl    *domainerrors.UnimplementedOperationError
	)
	switch {
	case errors.Is(err, domainerrors.ErrStorageNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainerrors.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.As(err, &moduleErr):
		return http.StatusNotFound
	case errors.As(err, &unimpl):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "httpapi: request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, domainerrors.ToErrorDetail(err))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
