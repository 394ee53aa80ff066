package pki

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

const pemTypeCertificate = "CERTIFICATE"

// LoadCertificate reads the first PEM certificate found in path.
func LoadCertificate(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s, err: %w", path, err)
	}
	cert, err := ParseCertificatePEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cert, nil
}

// ParseCertificatePEM parses the first CERTIFICATE block in data. Bytes
// that are not PEM at all are tried as raw DER, since some trust-anchor
// endpoints serve .crt files in binary form.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != pemTypeCertificate {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert, nil
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("no certificate PEM block found")
	}
	return cert, nil
}

// EncodeCertificatePEM returns cert.Raw as a PEM CERTIFICATE block.
func EncodeCertificatePEM(cert *x509.Certificate) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeCertificate,
		Bytes: cert.Raw,
	})
}
