package cryptoroot

import (
	"bytes"
	"crypto/x509"
	"path/filepath"
	"testing"

	"github.com/veraison/go-cose"

	"github.com/kokukuma/vical-verifier/pkg/pki"
)

func TestGenerateChain(t *testing.T) {
	chain, err := GenerateChain()
	if err != nil {
		t.Fatalf("GenerateChain() error: %v", err)
	}

	if got := chain.Intermediate.SignatureAlgorithm; got != x509.ECDSAWithSHA384 {
		t.Errorf("intermediate signed with %v, want ECDSA-SHA384", got)
	}
	if got := chain.Signer.SignatureAlgorithm; got != x509.ECDSAWithSHA256 {
		t.Errorf("signer signed with %v, want ECDSA-SHA256", got)
	}
	if err := chain.Signer.CheckSignatureFrom(chain.Intermediate); err != nil {
		t.Errorf("signer not issued by intermediate: %v", err)
	}
	if err := chain.Intermediate.CheckSignatureFrom(chain.Root); err != nil {
		t.Errorf("intermediate not issued by root: %v", err)
	}
}

func TestWriteChain(t *testing.T) {
	chain, err := GenerateChain()
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := chain.WriteChain(dir); err != nil {
		t.Fatalf("WriteChain() error: %v", err)
	}

	for name, want := range map[string]*x509.Certificate{
		RootCertFile:         chain.Root,
		IntermediateCertFile: chain.Intermediate,
		SignerCertFile:       chain.Signer,
	} {
		got, err := pki.LoadCertificate(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("LoadCertificate(%s) error: %v", name, err)
		}
		if !bytes.Equal(got.Raw, want.Raw) {
			t.Errorf("%s does not round trip", name)
		}
	}
}

func TestSignEnvelope(t *testing.T) {
	chain, err := GenerateChain()
	if err != nil {
		t.Fatal(err)
	}
	iaca, err := GenerateIACA("Test IACA", "CO")
	if err != nil {
		t.Fatal(err)
	}
	payload, err := BuildPayload("Test Provider", 1, []map[string]interface{}{IssuerRecord(iaca, "certificate")})
	if err != nil {
		t.Fatalf("BuildPayload() error: %v", err)
	}

	envelope, err := SignEnvelope(payload, chain.SignerKey, cose.AlgorithmES256)
	if err != nil {
		t.Fatalf("SignEnvelope() error: %v", err)
	}

	var msg cose.UntaggedSign1Message
	if err := msg.UnmarshalCBOR(envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	verifier, err := cose.NewVerifier(cose.AlgorithmES256, chain.SignerKey.Public())
	if err != nil {
		t.Fatal(err)
	}
	if err := msg.Verify(nil, verifier); err != nil {
		t.Errorf("envelope does not verify: %v", err)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Error("payload altered by signing")
	}
}
