package cryptoroot

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"math/big"
	"time"
)

// OID of the VICAL signing extended key usage (ISO/IEC 18013-5 Annex C).
var vicalSigningEKU = asn1.ObjectIdentifier{1, 0, 18013, 5, 1, 8}

func serialNumber() (*big.Int, error) {
	return rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 127))
}

func createRootCertificate(key *ecdsa.PrivateKey, cn string) (*x509.Certificate, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"VICAL Test Authority"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            1,
		SubjectKeyId:          CalcKID(&key.PublicKey, "sha1"),
	}
	return createCertificate(&template, &template, &key.PublicKey, key)
}

func createIntermediateCertificate(key *ecdsa.PrivateKey, cn string, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: cn, Organization: []string{"VICAL Test Authority"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(5, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		SubjectKeyId:          CalcKID(&key.PublicKey, "sha1"),
		AuthorityKeyId:        parent.SubjectKeyId,
	}
	return createCertificate(&template, parent, &key.PublicKey, parentKey)
}

func createSignerCertificate(key *ecdsa.PrivateKey, cn string, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (*x509.Certificate, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}
	template := x509.Certificate{
		SerialNumber:       serial,
		Subject:            pkix.Name{CommonName: cn, Organization: []string{"VICAL Test Authority"}},
		NotBefore:          time.Now().Add(-time.Hour),
		NotAfter:           time.Now().AddDate(1, 0, 0),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		UnknownExtKeyUsage: []asn1.ObjectIdentifier{vicalSigningEKU},
		SubjectKeyId:       CalcKID(&key.PublicKey, "sha1"),
		AuthorityKeyId:     parent.SubjectKeyId,
	}
	return createCertificate(&template, parent, &key.PublicKey, parentKey)
}

// createIACACertificate creates a self-signed issuing authority certificate.
// An empty cn produces a subject without a Common Name.
func createIACACertificate(key *ecdsa.PrivateKey, cn, state string) (*x509.Certificate, error) {
	serial, err := serialNumber()
	if err != nil {
		return nil, err
	}
	subject := pkix.Name{Country: []string{"US"}, CommonName: cn}
	if state != "" {
		subject.Province = []string{state}
	}
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
		SubjectKeyId:          CalcKID(&key.PublicKey, "sha1"),
	}
	return createCertificate(&template, &template, &key.PublicKey, key)
}

func createCertificate(template, parent *x509.Certificate, pub *ecdsa.PublicKey, parentKey *ecdsa.PrivateKey) (*x509.Certificate, error) {
	derBytes, err := x509.CreateCertificate(rand.Reader, template, parent, pub, parentKey)
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(derBytes)
}
