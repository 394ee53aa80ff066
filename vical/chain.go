package vical

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"fmt"

	"github.com/kokukuma/vical-verifier/pkg/hash"
)

// VerifyChain checks that intermediate signed signer and root signed
// intermediate, each with the hash algorithm the child certificate
// declares. Validity periods, key usage, basic constraints and revocation
// are not evaluated.
func VerifyChain(root, intermediate, signer *x509.Certificate) error {
	if root == nil || intermediate == nil || signer == nil {
		return fmt.Errorf("%w: trust chain needs root, intermediate and signer certificates", ErrInvalidSignature)
	}
	if err := verifyIssued(intermediate, signer); err != nil {
		return &ChainError{Link: LinkSignerIntermediate, Err: err}
	}
	if err := verifyIssued(root, intermediate); err != nil {
		return &ChainError{Link: LinkIntermediateRoot, Err: err}
	}
	return nil
}

func verifyIssued(issuer, subject *x509.Certificate) error {
	pub, ok := issuer.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("%w: issuer %q has %T, want *ecdsa.PublicKey", ErrUnsupportedKey, issuer.Subject, issuer.PublicKey)
	}

	h, err := signatureHash(subject.SignatureAlgorithm)
	if err != nil {
		return err
	}
	digest, err := hash.Digest(subject.RawTBSCertificate, h)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedKey, err)
	}

	if !ecdsa.VerifyASN1(pub, digest, subject.Signature) {
		return fmt.Errorf("%w: %q is not signed by %q", ErrInvalidSignature, subject.Subject, issuer.Subject)
	}
	return nil
}

// signatureHash returns the hash of an ECDSA X.509 signature algorithm.
func signatureHash(alg x509.SignatureAlgorithm) (crypto.Hash, error) {
	switch alg {
	case x509.ECDSAWithSHA256:
		return crypto.SHA256, nil
	case x509.ECDSAWithSHA384:
		return crypto.SHA384, nil
	case x509.ECDSAWithSHA512:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: signature algorithm %v", ErrUnsupportedKey, alg)
	}
}
