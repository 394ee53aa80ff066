package cryptoroot

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kokukuma/vical-verifier/pkg/pki"
)

// File names written by WriteChain.
const (
	RootCertFile         = "ca_root.crt"
	IntermediateCertFile = "ca_intermediate.crt"
	SignerCertFile       = "vicalsigner.crt"
	SignerKeyFile        = "vicalsigner_key.pem"
)

// WriteChain stores the three chain certificates and the signer key in dir.
func (c *Chain) WriteChain(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for name, cert := range map[string]*x509.Certificate{
		RootCertFile:         c.Root,
		IntermediateCertFile: c.Intermediate,
		SignerCertFile:       c.Signer,
	} {
		if err := writeCertificatePEM(cert, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return writePEMFile(c.SignerKey, filepath.Join(dir, SignerKeyFile))
}

func writePEMFile(privateKey *ecdsa.PrivateKey, filename string) error {
	derBytes, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return err
	}

	pemBlock := &pem.Block{
		Type:  "EC PRIVATE KEY",
		Bytes: derBytes,
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	return pem.Encode(file, pemBlock)
}

func writeCertificatePEM(cert *x509.Certificate, filename string) error {
	return os.WriteFile(filename, pki.EncodeCertificatePEM(cert), 0o644)
}
