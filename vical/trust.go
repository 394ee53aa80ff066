package vical

import (
	"crypto/x509"
	"fmt"

	"github.com/kokukuma/vical-verifier/pkg/pki"
)

// TrustChain holds the three anchors a VICAL is verified against.
type TrustChain struct {
	Root         *x509.Certificate
	Intermediate *x509.Certificate
	Signer       *x509.Certificate
}

// LoadTrustChain reads the root, intermediate and VICAL signer
// certificates from PEM (or DER) files.
func LoadTrustChain(rootPath, intermediatePath, signerPath string) (*TrustChain, error) {
	root, err := pki.LoadCertificate(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load root certificate: %w", err)
	}
	intermediate, err := pki.LoadCertificate(intermediatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load intermediate certificate: %w", err)
	}
	signer, err := pki.LoadCertificate(signerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load VICAL signer certificate: %w", err)
	}
	return &TrustChain{Root: root, Intermediate: intermediate, Signer: signer}, nil
}

// NewVerifier returns a Verifier over the chain.
func (c *TrustChain) NewVerifier(opts ...VerifierOption) *Verifier {
	return NewVerifier(c.Root, c.Intermediate, c.Signer, opts...)
}
