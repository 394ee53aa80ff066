package certstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kokukuma/vical-verifier/internal/cryptoroot"
	"github.com/kokukuma/vical-verifier/pkg/pki"
)

type store interface {
	Exists(name string) (bool, error)
	Write(name string, data []byte) error
}

func testPEM(t *testing.T) []byte {
	t.Helper()
	cert, err := cryptoroot.GenerateIACA("Colorado Root Certificate", "CO")
	if err != nil {
		t.Fatalf("failed to generate certificate: %v", err)
	}
	return pki.EncodeCertificatePEM(cert)
}

func TestStores(t *testing.T) {
	pemData := testPEM(t)

	sqliteStore, err := OpenSQLite("")
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	dirStore, err := NewDirStore(filepath.Join(t.TempDir(), "extracted_iacas"))
	if err != nil {
		t.Fatalf("NewDirStore() error: %v", err)
	}

	stores := map[string]store{
		"memory": NewMemStore(),
		"dir":    dirStore,
		"sqlite": sqliteStore,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			exists, err := s.Exists("co_certificate.pem")
			if err != nil {
				t.Fatalf("Exists() error: %v", err)
			}
			if exists {
				t.Fatal("empty store reports existing file")
			}

			if err := s.Write("co_certificate.pem", pemData); err != nil {
				t.Fatalf("Write() error: %v", err)
			}
			exists, err = s.Exists("co_certificate.pem")
			if err != nil {
				t.Fatalf("Exists() error: %v", err)
			}
			if !exists {
				t.Error("written file not reported as existing")
			}

			if err := s.Write("co_certificate.pem", []byte("other")); !errors.Is(err, ErrExists) {
				t.Errorf("second Write() error = %v, want ErrExists", err)
			}

			for _, bad := range []string{"", "..", "../escape.pem", "sub/dir.pem"} {
				if err := s.Write(bad, pemData); err == nil {
					t.Errorf("Write(%q) succeeded, want error", bad)
				}
			}
		})
	}
}

func TestDirStoreKeepsContent(t *testing.T) {
	pemData := testPEM(t)
	dir := t.TempDir()
	s, err := NewDirStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write("a.pem", pemData); err != nil {
		t.Fatal(err)
	}
	_ = s.Write("a.pem", []byte("overwrite attempt"))

	got, err := os.ReadFile(filepath.Join(dir, "a.pem"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, pemData) {
		t.Error("existing file was modified")
	}
}

func TestMemStoreOrder(t *testing.T) {
	s := NewMemStore()
	for _, name := range []string{"foo.pem", "1_foo.pem", "bar.pem"} {
		if err := s.Write(name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	got := s.Names()
	want := []string{"foo.pem", "1_foo.pem", "bar.pem"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if data, ok := s.Get("bar.pem"); !ok || string(data) != "bar.pem" {
		t.Errorf("Get(bar.pem) = %q, %v", data, ok)
	}
}

func TestSQLiteList(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer s.Close()

	pemData := testPEM(t)
	if err := s.Write("co_certificate.pem", pemData); err != nil {
		t.Fatal(err)
	}

	files, err := s.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("List() returned %d rows, want 1", len(files))
	}
	if files[0].Subject != "CN=Colorado Root Certificate,ST=CO,C=US" {
		t.Errorf("subject = %q", files[0].Subject)
	}
	if !bytes.Equal(files[0].PEM, pemData) {
		t.Error("PEM does not round trip")
	}
}

func TestSQLiteGet(t *testing.T) {
	s, err := OpenSQLite("")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	pemData := testPEM(t)
	if err := s.Write("co_certificate.pem", pemData); err != nil {
		t.Fatal(err)
	}

	file, err := s.Get("co_certificate.pem")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !bytes.Equal(file.PEM, pemData) || file.NotAfter.IsZero() {
		t.Errorf("file = %+v", file)
	}
	if _, err := s.Get("missing.pem"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}
