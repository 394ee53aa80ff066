package server

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter registers the service endpoints of s.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()
	r.Use(handlers.CORS(
		handlers.AllowedMethods([]string{"POST", "GET"}),
		handlers.AllowedHeaders([]string{"content-type"}),
		handlers.AllowedOrigins([]string{"*"}),
	))

	r.HandleFunc("/healthz", s.HealthzHandler).Methods("GET")
	r.HandleFunc("/trust", s.TrustHandler).Methods("GET", "OPTIONS")

	r.HandleFunc("/vical/verify", s.VerifyVICALHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/vical/import", s.ImportVICALHandler).Methods("POST", "OPTIONS")
	r.HandleFunc("/vical/runs/{runid}", s.GetRunHandler).Methods("GET", "OPTIONS")

	certRouter := r.PathPrefix("/api/certificates").Subrouter()
	certRouter.HandleFunc("", s.ListCertificatesHandler).Methods("GET", "OPTIONS")
	certRouter.HandleFunc("/{filename}", s.GetCertificateHandler).Methods("GET", "OPTIONS")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonErrorResponse(w, errNotFound, http.StatusNotFound)
	})
	return r
}
