package vical

import (
	"path/filepath"
	"testing"

	"github.com/kokukuma/vical-verifier/internal/cryptoroot"
)

func TestLoadTrustChain(t *testing.T) {
	f := newFixture(t, "Foo")
	dir := t.TempDir()
	if err := f.chain.WriteChain(dir); err != nil {
		t.Fatal(err)
	}

	chain, err := LoadTrustChain(
		filepath.Join(dir, cryptoroot.RootCertFile),
		filepath.Join(dir, cryptoroot.IntermediateCertFile),
		filepath.Join(dir, cryptoroot.SignerCertFile),
	)
	if err != nil {
		t.Fatalf("LoadTrustChain() error: %v", err)
	}
	if !chain.Signer.Equal(f.chain.Signer) {
		t.Error("loaded signer differs")
	}
	if _, err := chain.NewVerifier(WithLogger(discardLogger())).Process(f.envelope, nil); err != nil {
		t.Errorf("Process() error: %v", err)
	}

	if _, err := LoadTrustChain(filepath.Join(dir, "missing.crt"), "", ""); err == nil {
		t.Error("LoadTrustChain() with a missing file succeeded")
	}
}
