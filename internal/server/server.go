package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/kokukuma/vical-verifier/internal/certstore"
	"github.com/kokukuma/vical-verifier/vical"
)

const defaultMaxUploadBytes = 16 << 20

var errNotFound = errors.New("not found")

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		s.maxUploadBytes = n
	}
}

// WithCatalog enables /vical/import and the /api/certificates endpoints.
func WithCatalog(catalog *certstore.SQLiteStore) Option {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithVerifierOptions is passed through to the shared vical.Verifier.
func WithVerifierOptions(opts ...vical.VerifierOption) Option {
	return func(s *Server) {
		s.verifierOpts = append(s.verifierOpts, opts...)
	}
}

type Server struct {
	trust          *vical.TrustChain
	verifier       *vical.Verifier
	verifierOpts   []vical.VerifierOption
	catalog        *certstore.SQLiteStore
	importMu       sync.Mutex // one import at a time picks and writes catalog names
	runs           *Runs
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewServer(trust *vical.TrustChain, opts ...Option) *Server {
	s := &Server{
		trust:          trust,
		runs:           NewRuns(defaultRunLimit),
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	verifierOpts := append([]vical.VerifierOption{vical.WithLogger(s.logger)}, s.verifierOpts...)
	s.verifier = trust.NewVerifier(verifierOpts...)
	return s
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// readBody reads at most s.maxUploadBytes of the request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errors.New("no request body given")
	}
	defer r.Body.Close()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}
	return data, nil
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case vical.IsEnvelopeError(err):
		return http.StatusBadRequest
	case vical.IsSignatureError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, certstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, certstore.ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(w http.ResponseWriter, d interface{}, c int) {
	dj, err := json.Marshal(d)
	if err != nil {
		http.Error(w, "Error creating JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(c)
	fmt.Fprintf(w, "%s", dj)
}

func jsonErrorResponse(w http.ResponseWriter, e error, c int) {
	jsonResponse(w, ErrorResponse{Error: e.Error()}, c)
}
