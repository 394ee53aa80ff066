// Package vical verifies a Verified Issuer Certificate Authority List
// (ISO/IEC 18013-5 Annex C) and extracts the issuing authority certificates
// it carries. This file contains the error kinds shared by the package.
package vical

import (
	"errors"
	"fmt"

	"github.com/kokukuma/vical-verifier/pkg/ecdsasig"
)

var (
	// ErrMalformedEnvelope: the VICAL is not a COSE_Sign1 shaped CBOR array.
	ErrMalformedEnvelope = errors.New("malformed envelope")

	// ErrMalformedHeader: the protected header is not a CBOR map.
	ErrMalformedHeader = errors.New("malformed protected header")

	// ErrMalformedSignature: a signature does not fit its algorithm profile.
	ErrMalformedSignature = ecdsasig.ErrMalformedSignature

	// ErrMalformedPayload: the payload is not a map with a certificateInfos array.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidSignature: a chain link or the payload signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnsupportedKey: a certificate carries a key or signature
	// algorithm outside ECDSA with SHA-2.
	ErrUnsupportedKey = errors.New("unsupported key")

	// ErrCertificateParse: a record's certificate bytes are not X.509 DER.
	ErrCertificateParse = errors.New("certificate parse error")

	// ErrMissingCertificateBytes: a record has neither "certificate" nor "iaca".
	ErrMissingCertificateBytes = errors.New("missing certificate bytes")
)

// ChainLink names one issuer -> subject verification of the trust chain.
type ChainLink string

const (
	LinkSignerIntermediate ChainLink = "intermediate->signer"
	LinkIntermediateRoot   ChainLink = "root->intermediate"
)

// ChainError reports which link of the trust chain failed.
type ChainError struct {
	Link ChainLink
	Err  error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("certificate chain link %s: %v", e.Link, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// FailedLink returns the chain link that err reports, if any.
func FailedLink(err error) (ChainLink, bool) {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Link, true
	}
	return "", false
}

// IsEnvelopeError checks if an error is a structural problem of the VICAL bytes.
func IsEnvelopeError(err error) bool {
	return errors.Is(err, ErrMalformedEnvelope) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrMalformedSignature) ||
		errors.Is(err, ErrMalformedPayload)
}

// IsSignatureError checks if an error is a failed chain or payload signature.
func IsSignatureError(err error) bool {
	return errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrUnsupportedKey)
}

// IsRecordError checks if an error only concerns a single certificate record.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrCertificateParse) || errors.Is(err, ErrMissingCertificateBytes)
}
