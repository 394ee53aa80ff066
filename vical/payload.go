package vical

import (
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"

	"github.com/kokukuma/vical-verifier/pkg/ecdsasig"
	"github.com/kokukuma/vical-verifier/pkg/hash"
)

// VerifiedPayload is a payload whose COSE_Sign1 signature has been checked
// against the VICAL signer certificate.
type VerifiedPayload struct {
	Bytes   []byte
	Profile AlgorithmProfile
	Header  ProtectedHeader
}

// VerifyPayload verifies the envelope signature with the signer's public
// key and returns the payload bytes unmodified.
func VerifyPayload(env *Envelope, signer *x509.Certificate) (*VerifiedPayload, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: envelope is nil", ErrMalformedEnvelope)
	}
	if signer == nil {
		return nil, fmt.Errorf("%w: signer certificate is nil", ErrInvalidSignature)
	}

	header, err := DecodeProtectedHeader(env.ProtectedHeaderBytes)
	if err != nil {
		return nil, err
	}
	profile := header.Profile()

	if len(env.SignatureBytes) != 2*profile.CoordWidth {
		return nil, fmt.Errorf("%w: %s signature must be %d bytes, got %d",
			ErrMalformedSignature, profile.Algorithm, 2*profile.CoordWidth, len(env.SignatureBytes))
	}
	der, err := ecdsasig.RawToDER(env.SignatureBytes, profile.CoordWidth)
	if err != nil {
		return nil, err
	}

	tbs, err := SigStructure(env.ProtectedHeaderBytes, env.PayloadBytes)
	if err != nil {
		return nil, err
	}

	pub, ok := signer.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: signer has %T, want *ecdsa.PublicKey", ErrUnsupportedKey, signer.PublicKey)
	}
	digest, err := hash.Digest(tbs, profile.Hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}
	if !ecdsa.VerifyASN1(pub, digest, der) {
		return nil, fmt.Errorf("%w: payload signature does not verify with %q", ErrInvalidSignature, signer.Subject)
	}

	return &VerifiedPayload{
		Bytes:   env.PayloadBytes,
		Profile: profile,
		Header:  header,
	}, nil
}
