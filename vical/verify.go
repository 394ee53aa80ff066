package vical

import (
	"crypto/x509"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

type VerifierOption func(*Verifier)

// SkipVerifyPayload disables the payload signature check. INSECURE: the
// trust chain is still verified but nothing binds the extracted
// certificates to the signer. For debugging VICAL files only.
func SkipVerifyPayload() VerifierOption {
	return func(v *Verifier) {
		v.skipVerifyPayload = true
	}
}

func WithRenames(renames RenameMap) VerifierOption {
	return func(v *Verifier) {
		v.renames = renames
	}
}

func WithLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// Verifier runs the VICAL pipeline against one fixed trust chain:
// chain -> envelope -> payload signature -> extraction -> sink.
// A Verifier holds no per-run state and may be shared.
type Verifier struct {
	root              *x509.Certificate
	intermediate      *x509.Certificate
	signer            *x509.Certificate
	renames           RenameMap
	skipVerifyPayload bool
	logger            *slog.Logger
}

func NewVerifier(root, intermediate, signer *x509.Certificate, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		root:         root,
		intermediate: intermediate,
		signer:       signer,
		renames:      DefaultRenameMap(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Result summarises one processed VICAL.
type Result struct {
	RunID           uuid.UUID                  `json:"run_id"`
	Algorithm       string                     `json:"algorithm"`
	Degraded        bool                       `json:"degraded"`
	PayloadVerified bool                       `json:"payload_verified"`
	Info            Info                       `json:"info"`
	Files           []ExtractedCertificateFile `json:"files"`
	Diagnostics     []RecordDiagnostic         `json:"-"`
	Profile         AlgorithmProfile           `json:"-"`
}

// Verify checks the trust chain and the envelope signature and returns
// the payload that may be extracted.
func (v *Verifier) Verify(raw []byte) (*VerifiedPayload, error) {
	if err := VerifyChain(v.root, v.intermediate, v.signer); err != nil {
		return nil, fmt.Errorf("failed to verify certificate chain: %w", err)
	}
	v.logger.Info("certificate chain is valid",
		"root", v.root.Subject.String(),
		"intermediate", v.intermediate.Subject.String(),
		"signer", v.signer.Subject.String())

	env, err := DecodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	if v.skipVerifyPayload {
		return v.unverifiedPayload(env)
	}

	payload, err := VerifyPayload(env, v.signer)
	if err != nil {
		return nil, fmt.Errorf("failed to verify VICAL signature: %w", err)
	}
	if payload.Profile.Degraded {
		v.logger.Warn("VICAL signature verified under an assumed algorithm", "profile", payload.Profile.String())
	} else {
		v.logger.Info("VICAL signature is valid", "alg", payload.Profile.String())
	}
	return payload, nil
}

func (v *Verifier) unverifiedPayload(env *Envelope) (*VerifiedPayload, error) {
	v.logger.Warn("SKIPPING VICAL payload signature verification; extracted certificates are not authenticated")
	header, err := DecodeProtectedHeader(env.ProtectedHeaderBytes)
	if err != nil {
		return nil, err
	}
	return &VerifiedPayload{
		Bytes:   env.PayloadBytes,
		Profile: header.Profile(),
		Header:  header,
	}, nil
}

// Process verifies raw, extracts its issuer certificates and writes them
// to sink. A nil sink extracts without writing.
func (v *Verifier) Process(raw []byte, sink Sink) (*Result, error) {
	payload, err := v.Verify(raw)
	if err != nil {
		return nil, err
	}

	extractor := NewExtractor(sink, WithRenameMap(v.renames), WithExtractorLogger(v.logger))
	run, err := extractor.Extract(payload.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to extract certificates: %w", err)
	}
	if sink != nil {
		if err := extractor.Save(run); err != nil {
			return nil, err
		}
	}

	return &Result{
		RunID:           run.RunID,
		Algorithm:       payload.Profile.Algorithm.String(),
		Degraded:        payload.Profile.Degraded,
		PayloadVerified: !v.skipVerifyPayload,
		Info:            run.Info,
		Files:           run.Files,
		Diagnostics:     run.Diagnostics,
		Profile:         payload.Profile,
	}, nil
}
