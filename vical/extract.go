package vical

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/kokukuma/vical-verifier/pkg/pki"
)

// Name used for certificates whose subject has no usable Common Name.
const fallbackFilename = "unknown_issuer.pem"

var oidCommonName = asn1.ObjectIdentifier{2, 5, 4, 3}

// Sink stores extracted certificates by filename.
type Sink interface {
	Exists(name string) (bool, error)
	Write(name string, data []byte) error
}

// ExtractedCertificateFile is one certificate ready to be written.
type ExtractedCertificateFile struct {
	Name        string            `json:"name"`
	DerivedName string            `json:"derived_name"`
	Subject     string            `json:"subject"`
	PEM         []byte            `json:"pem"`
	Certificate *x509.Certificate `json:"-"`
}

// Renamed reports whether the rename map or deduplication changed the name.
func (f ExtractedCertificateFile) Renamed() bool {
	return f.Name != f.DerivedName
}

// RecordDiagnostic explains why a certificateInfos entry was skipped.
type RecordDiagnostic struct {
	Index int   `json:"index"`
	Err   error `json:"-"`
}

func (d RecordDiagnostic) Error() string {
	return fmt.Sprintf("record %d: %v", d.Index, d.Err)
}

func (d RecordDiagnostic) Unwrap() error {
	return d.Err
}

// Extraction is the outcome of one extraction run.
type Extraction struct {
	RunID       uuid.UUID
	Info        Info
	Files       []ExtractedCertificateFile
	Diagnostics []RecordDiagnostic
}

type ExtractorOption func(*Extractor)

// WithRenameMap replaces the built-in rename table.
func WithRenameMap(renames RenameMap) ExtractorOption {
	return func(e *Extractor) {
		e.renames = renames
	}
}

func WithExtractorLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// Extractor turns a verified payload into named PEM files. Names are made
// unique against the sink and against earlier files of the same run; no
// naming state outlives a call to Extract.
type Extractor struct {
	sink    Sink
	renames RenameMap
	logger  *slog.Logger
}

// NewExtractor returns an Extractor checking name collisions against sink.
// A nil sink only deduplicates within a run.
func NewExtractor(sink Sink, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		sink:    sink,
		renames: DefaultRenameMap(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract decodes payload and emits one file per usable record, in record
// order. Only a malformed payload or a failing sink aborts the run.
func (e *Extractor) Extract(payload []byte) (*Extraction, error) {
	decoded, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	run := &Extraction{
		RunID: uuid.New(),
		Info:  decoded.Info,
	}
	logger := e.logger.With("run_id", run.RunID.String())
	logger.Info("extracting issuer certificates", "records", len(decoded.Records), "provider", decoded.Info.Provider)
	keys := make([]string, 0, len(decoded.InfoErrors))
	for key := range decoded.InfoErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		logger.Debug("ignoring malformed VICAL metadata", "key", key, "error", decoded.InfoErrors[key])
	}

	seen := map[string]struct{}{}
	for i, raw := range decoded.Records {
		cert, err := parseRecord(raw)
		if err != nil {
			diag := RecordDiagnostic{Index: i, Err: err}
			run.Diagnostics = append(run.Diagnostics, diag)
			logger.Warn("skipping certificate record", "index", i, "error", err)
			continue
		}

		derived := DeriveFilename(cert)
		name, err := e.uniqueName(e.renames.Apply(derived), seen)
		if err != nil {
			return nil, err
		}

		file := ExtractedCertificateFile{
			Name:        name,
			DerivedName: derived,
			Subject:     cert.Subject.String(),
			PEM:         pki.EncodeCertificatePEM(cert),
			Certificate: cert,
		}
		run.Files = append(run.Files, file)
		if file.Renamed() {
			logger.Info("extracted issuer certificate", "subject", file.Subject, "name", name, "renamed_from", derived)
		} else {
			logger.Info("extracted issuer certificate", "subject", file.Subject, "name", name)
		}
	}
	return run, nil
}

// SaveError reports a Save that stopped part way. Files named in Written
// were stored before the failure and are left in the sink.
type SaveError struct {
	Name    string
	Written []string
	Err     error
}

func (e *SaveError) Error() string {
	if len(e.Written) == 0 {
		return fmt.Sprintf("failed to write %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("failed to write %s after writing %s: %v", e.Name, strings.Join(e.Written, ", "), e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Save writes every file of run to the sink in order. Writes are not rolled
// back: on failure the returned *SaveError lists the files already stored.
func (e *Extractor) Save(run *Extraction) error {
	if e.sink == nil {
		return fmt.Errorf("extractor has no sink")
	}
	written := make([]string, 0, len(run.Files))
	for _, f := range run.Files {
		if err := e.sink.Write(f.Name, f.PEM); err != nil {
			return &SaveError{Name: f.Name, Written: written, Err: err}
		}
		written = append(written, f.Name)
	}
	return nil
}

func parseRecord(raw []byte) (*x509.Certificate, error) {
	record, err := DecodeRecord(raw)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(record.DER())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
	return cert, nil
}

// uniqueName prefixes name with 1_, 2_, ... until neither the sink nor
// this run already holds it.
func (e *Extractor) uniqueName(name string, seen map[string]struct{}) (string, error) {
	candidate := name
	for counter := 1; ; counter++ {
		taken, err := e.taken(candidate, seen)
		if err != nil {
			return "", err
		}
		if !taken {
			seen[candidate] = struct{}{}
			return candidate, nil
		}
		candidate = fmt.Sprintf("%d_%s", counter, name)
	}
}

func (e *Extractor) taken(name string, seen map[string]struct{}) (bool, error) {
	if _, ok := seen[name]; ok {
		return true, nil
	}
	if e.sink == nil {
		return false, nil
	}
	exists, err := e.sink.Exists(name)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", name, err)
	}
	return exists, nil
}

// DeriveFilename builds "<common name>.pem" keeping letters, digits,
// spaces and hyphens, with spaces turned into underscores, lowercased.
func DeriveFilename(cert *x509.Certificate) string {
	cn, ok := commonName(cert)
	if !ok {
		return fallbackFilename
	}

	var b strings.Builder
	for _, r := range cn {
		switch {
		case unicode.IsLetter(r), unicode.IsNumber(r), r == '-':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return fallbackFilename
	}
	return strings.ToLower(b.String()) + ".pem"
}

// commonName returns the first CN attribute of the subject. pkix.Name's
// CommonName field keeps the last one instead.
func commonName(cert *x509.Certificate) (string, bool) {
	for _, attr := range cert.Subject.Names {
		if !attr.Type.Equal(oidCommonName) {
			continue
		}
		if s, ok := attr.Value.(string); ok {
			return s, true
		}
	}
	return "", false
}
