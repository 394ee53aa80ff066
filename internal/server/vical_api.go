package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/kokukuma/vical-verifier/internal/certstore"
	"github.com/kokukuma/vical-verifier/vical"
)

type VerifyResponse struct {
	RunID           string               `json:"run_id"`
	Algorithm       string               `json:"algorithm"`
	Degraded        bool                 `json:"degraded"`
	DegradedReason  string               `json:"degraded_reason,omitempty"`
	PayloadVerified bool                 `json:"payload_verified"`
	Info            vical.Info           `json:"info"`
	Files           []FileResponse       `json:"files"`
	Diagnostics     []DiagnosticResponse `json:"diagnostics,omitempty"`
}

type FileResponse struct {
	Name        string `json:"name"`
	DerivedName string `json:"derived_name"`
	Renamed     bool   `json:"renamed"`
	Subject     string `json:"subject"`
	PEMData     string `json:"pem_data"`
}

type DiagnosticResponse struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

func newVerifyResponse(result *vical.Result) *VerifyResponse {
	resp := &VerifyResponse{
		RunID:           result.RunID.String(),
		Algorithm:       result.Algorithm,
		Degraded:        result.Degraded,
		DegradedReason:  result.Profile.Reason,
		PayloadVerified: result.PayloadVerified,
		Info:            result.Info,
		Files:           make([]FileResponse, 0, len(result.Files)),
	}
	for _, f := range result.Files {
		resp.Files = append(resp.Files, FileResponse{
			Name:        f.Name,
			DerivedName: f.DerivedName,
			Renamed:     f.Renamed(),
			Subject:     f.Subject,
			PEMData:     string(f.PEM),
		})
	}
	for _, d := range result.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, DiagnosticResponse{Index: d.Index, Error: d.Err.Error()})
	}
	return resp
}

// VerifyVICALHandler verifies a VICAL posted as the raw CBOR body and
// returns the extracted certificates. Names are deduplicated within the
// request only.
func (s *Server) VerifyVICALHandler(w http.ResponseWriter, r *http.Request) {
	s.process(w, r, certstore.NewMemStore(), nil)
}

// ImportVICALHandler is VerifyVICALHandler writing into the catalog, so
// names are deduplicated against everything imported before. Imports are
// serialized so that no two runs choose names against the same catalog
// state.
func (s *Server) ImportVICALHandler(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		jsonErrorResponse(w, errors.New("no certificate catalog configured"), http.StatusNotFound)
		return
	}
	s.process(w, r, s.catalog, &s.importMu)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request, sink vical.Sink, lock sync.Locker) {
	raw, err := s.readBody(w, r)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		jsonErrorResponse(w, fmt.Errorf("failed to read VICAL: %v", err), status)
		return
	}

	result, err := s.run(raw, sink, lock)
	if err != nil {
		s.logger.Warn("VICAL rejected", "error", err, "remote", r.RemoteAddr)
		jsonErrorResponse(w, err, statusFor(err))
		return
	}

	resp := newVerifyResponse(result)
	s.runs.Save(resp)
	jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) run(raw []byte, sink vical.Sink, lock sync.Locker) (*vical.Result, error) {
	if lock != nil {
		lock.Lock()
		defer lock.Unlock()
	}
	return s.verifier.Process(raw, sink)
}

// GetRunHandler returns an earlier verification result by run ID.
func (s *Server) GetRunHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["runid"]
	resp, ok := s.runs.Get(id)
	if !ok {
		jsonErrorResponse(w, fmt.Errorf("run %s not found", id), http.StatusNotFound)
		return
	}
	jsonResponse(w, resp, http.StatusOK)
}

func (s *Server) HealthzHandler(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}
