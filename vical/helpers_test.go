package vical

import (
	"crypto/x509"
	"testing"

	"github.com/veraison/go-cose"

	"github.com/kokukuma/vical-verifier/internal/cryptoroot"
)

type fixture struct {
	chain    *cryptoroot.Chain
	payload  []byte
	envelope []byte
}

func newChain(t *testing.T) *cryptoroot.Chain {
	t.Helper()
	chain, err := cryptoroot.GenerateChain()
	if err != nil {
		t.Fatalf("failed to generate chain: %v", err)
	}
	return chain
}

func newIACA(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	cert, err := cryptoroot.GenerateIACA(cn, "")
	if err != nil {
		t.Fatalf("failed to generate IACA %q: %v", cn, err)
	}
	return cert
}

func buildPayload(t *testing.T, records ...map[string]interface{}) []byte {
	t.Helper()
	payload, err := cryptoroot.BuildPayload("Test Provider", 7, records)
	if err != nil {
		t.Fatalf("failed to build payload: %v", err)
	}
	return payload
}

// newFixture signs a payload holding one record per common name.
func newFixture(t *testing.T, commonNames ...string) *fixture {
	t.Helper()
	chain := newChain(t)

	var records []map[string]interface{}
	for _, cn := range commonNames {
		records = append(records, cryptoroot.IssuerRecord(newIACA(t, cn), keyCertificate))
	}
	payload := buildPayload(t, records...)

	envelope, err := cryptoroot.SignEnvelope(payload, chain.SignerKey, cose.AlgorithmES256)
	if err != nil {
		t.Fatalf("failed to sign envelope: %v", err)
	}
	return &fixture{chain: chain, payload: payload, envelope: envelope}
}

func flipBit(b []byte, i int) []byte {
	out := append([]byte(nil), b...)
	out[i] ^= 0x01
	return out
}
