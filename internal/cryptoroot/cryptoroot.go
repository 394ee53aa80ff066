// Package cryptoroot generates throwaway ECDSA trust chains, issuing
// authority certificates and signed VICAL envelopes. It backs the test
// suites and the `vical mint` command; nothing it produces is trusted.
package cryptoroot

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"hash"
)

// Chain is a root -> intermediate -> VICAL signer chain with its keys.
type Chain struct {
	RootKey         *ecdsa.PrivateKey
	Root            *x509.Certificate
	IntermediateKey *ecdsa.PrivateKey
	Intermediate    *x509.Certificate
	SignerKey       *ecdsa.PrivateKey
	Signer          *x509.Certificate
}

// Curves selects the key curve of each tier. The hash each certificate is
// signed with follows the issuer's curve (P-256 -> SHA-256, P-384 -> SHA-384).
type Curves struct {
	Root         elliptic.Curve
	Intermediate elliptic.Curve
	Signer       elliptic.Curve
}

// DefaultCurves mixes curve sizes so that the intermediate is signed with
// SHA-384 and the signer with SHA-256.
var DefaultCurves = Curves{
	Root:         elliptic.P384(),
	Intermediate: elliptic.P256(),
	Signer:       elliptic.P256(),
}

func GenerateChain() (*Chain, error) {
	return GenerateChainWithCurves(DefaultCurves)
}

func GenerateChainWithCurves(curves Curves) (*Chain, error) {
	rootKey, err := ecdsa.GenerateKey(curves.Root, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate root key: %w", err)
	}
	root, err := createRootCertificate(rootKey, "VICAL Test Root CA")
	if err != nil {
		return nil, fmt.Errorf("failed to create root certificate: %w", err)
	}

	intermediateKey, err := ecdsa.GenerateKey(curves.Intermediate, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate intermediate key: %w", err)
	}
	intermediate, err := createIntermediateCertificate(intermediateKey, "VICAL Test Intermediate CA", root, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create intermediate certificate: %w", err)
	}

	signerKey, err := ecdsa.GenerateKey(curves.Signer, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signer key: %w", err)
	}
	signer, err := createSignerCertificate(signerKey, "VICAL Test Signer", intermediate, intermediateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer certificate: %w", err)
	}

	return &Chain{
		RootKey:         rootKey,
		Root:            root,
		IntermediateKey: intermediateKey,
		Intermediate:    intermediate,
		SignerKey:       signerKey,
		Signer:          signer,
	}, nil
}

// GenerateIACA returns a self-signed P-256 issuing authority certificate
// whose subject carries cn (omitted when empty) and an optional state.
func GenerateIACA(cn, state string) (*x509.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return createIACACertificate(key, cn, state)
}

// SignatureHash reports the hash an issuer key of the given curve signs with.
func SignatureHash(curve elliptic.Curve) crypto.Hash {
	switch curve.Params().BitSize {
	case 384:
		return crypto.SHA384
	case 521:
		return crypto.SHA512
	default:
		return crypto.SHA256
	}
}

func CalcKID(pub *ecdsa.PublicKey, hashAlgo string) []byte {
	b := elliptic.Marshal(pub.Curve, pub.X, pub.Y)

	var h hash.Hash
	switch hashAlgo {
	case "sha1":
		h = sha1.New()
	default:
		h = sha256.New()
	}

	h.Write(b)
	return h.Sum(nil)
}
