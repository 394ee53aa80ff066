package server

import (
	"crypto"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/kokukuma/vical-verifier/pkg/hash"
	"github.com/kokukuma/vical-verifier/pkg/pki"
)

// CertInfo contains information about a certificate
type CertInfo struct {
	Filename    string `json:"filename,omitempty"`
	Role        string `json:"role,omitempty"`
	Subject     string `json:"subject"`
	Issuer      string `json:"issuer"`
	ValidFrom   string `json:"valid_from"`
	ValidTo     string `json:"valid_to"`
	Fingerprint string `json:"fingerprint"`
}

func certInfo(cert *x509.Certificate) CertInfo {
	fp, _ := hash.Digest(cert.Raw, crypto.SHA256)
	return CertInfo{
		Subject:     cert.Subject.String(),
		Issuer:      cert.Issuer.String(),
		ValidFrom:   cert.NotBefore.UTC().Format(time.RFC3339),
		ValidTo:     cert.NotAfter.UTC().Format(time.RFC3339),
		Fingerprint: hex.EncodeToString(fp),
	}
}

// TrustHandler lists the anchors VICALs are verified against.
func (s *Server) TrustHandler(w http.ResponseWriter, r *http.Request) {
	anchors := []struct {
		role string
		cert *x509.Certificate
	}{
		{"root", s.trust.Root},
		{"intermediate", s.trust.Intermediate},
		{"signer", s.trust.Signer},
	}
	infos := make([]CertInfo, 0, len(anchors))
	for _, a := range anchors {
		info := certInfo(a.cert)
		info.Role = a.role
		infos = append(infos, info)
	}
	jsonResponse(w, infos, http.StatusOK)
}

// ListCertificatesHandler returns every certificate in the catalog
func (s *Server) ListCertificatesHandler(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		jsonErrorResponse(w, errors.New("no certificate catalog configured"), http.StatusNotFound)
		return
	}
	files, err := s.catalog.List()
	if err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to list certificates: %v", err), http.StatusInternalServerError)
		return
	}

	infos := make([]CertInfo, 0, len(files))
	for _, f := range files {
		cert, err := pki.ParseCertificatePEM(f.PEM)
		if err != nil {
			s.logger.Warn("catalog entry is not a certificate", "name", f.Name, "error", err)
			continue
		}
		info := certInfo(cert)
		info.Filename = f.Name
		infos = append(infos, info)
	}
	jsonResponse(w, infos, http.StatusOK)
}

// GetCertificateHandler returns a specific certificate
func (s *Server) GetCertificateHandler(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		jsonErrorResponse(w, errors.New("no certificate catalog configured"), http.StatusNotFound)
		return
	}
	filename := mux.Vars(r)["filename"]

	file, err := s.catalog.Get(filename)
	if err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to get certificate: %v", err), statusFor(err))
		return
	}
	cert, err := pki.ParseCertificatePEM(file.PEM)
	if err != nil {
		jsonErrorResponse(w, fmt.Errorf("failed to parse certificate: %v", err), http.StatusInternalServerError)
		return
	}
	info := certInfo(cert)
	info.Filename = file.Name

	// Return both certificate info and PEM data
	response := struct {
		Info    CertInfo `json:"info"`
		PEMData string   `json:"pem_data"`
	}{
		Info:    info,
		PEMData: string(file.PEM),
	}
	jsonResponse(w, response, http.StatusOK)
}
