package ecdsasig

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func TestRawToDER(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		coordWidth int
		want       string
		wantErr    error
	}{
		{
			name:       "high bit gets a leading zero",
			raw:        "00000001" + "80000000",
			coordWidth: 4,
			want:       "300a" + "020101" + "02050080000000",
		},
		{
			name:       "zero integers",
			raw:        "0000" + "0000",
			coordWidth: 2,
			want:       "3006" + "020100" + "020100",
		},
		{
			name:       "short signature",
			raw:        "0102030405",
			coordWidth: 4,
			wantErr:    ErrMalformedSignature,
		},
		{
			name:       "padded signature",
			raw:        "000000010000000100",
			coordWidth: 4,
			wantErr:    ErrMalformedSignature,
		},
		{
			name:       "invalid width",
			raw:        "",
			coordWidth: 0,
			wantErr:    ErrMalformedSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := hex.DecodeString(tt.raw)
			der, err := RawToDER(raw, tt.coordWidth)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("RawToDER() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := hex.EncodeToString(der); got != tt.want {
				t.Errorf("RawToDER() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, width := range []int{32, 48, 66} {
		for i := 0; i < 32; i++ {
			raw := make([]byte, 2*width)
			if _, err := rand.Read(raw); err != nil {
				t.Fatal(err)
			}
			// exercise leading zero bytes in both halves
			if i%4 == 0 {
				raw[0], raw[width] = 0, 0
			}

			der, err := RawToDER(raw, width)
			if err != nil {
				t.Fatalf("RawToDER(width=%d) error: %v", width, err)
			}
			back, err := DERToRaw(der, width)
			if err != nil {
				t.Fatalf("DERToRaw(width=%d) error: %v", width, err)
			}
			if !bytes.Equal(raw, back) {
				t.Fatalf("round trip mismatch (width=%d): %x != %x", width, raw, back)
			}
		}
	}
}

func TestConvertedSignatureVerifies(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	digest := sha256.Sum256([]byte("vical"))
	der, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatal(err)
	}

	raw, err := DERToRaw(der, 32)
	if err != nil {
		t.Fatalf("DERToRaw() error: %v", err)
	}
	if len(raw) != 64 {
		t.Fatalf("len(raw) = %d, want 64", len(raw))
	}

	reencoded, err := RawToDER(raw, 32)
	if err != nil {
		t.Fatalf("RawToDER() error: %v", err)
	}
	if !bytes.Equal(der, reencoded) {
		t.Errorf("re-encoded DER differs: %x != %x", reencoded, der)
	}
	if !ecdsa.VerifyASN1(&key.PublicKey, digest[:], reencoded) {
		t.Error("re-encoded signature does not verify")
	}
}

func TestDERToRawRejects(t *testing.T) {
	tests := []struct {
		name string
		der  string
	}{
		{name: "empty", der: ""},
		{name: "not a sequence", der: "020101"},
		{name: "trailing data", der: "3006020101020101" + "00"},
		{name: "single integer", der: "3003020101"},
		{name: "negative integer", der: "3006020181020101"},
		{name: "integer too wide", der: "300702020101020101"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, _ := hex.DecodeString(tt.der)
			if _, err := DERToRaw(der, 1); !errors.Is(err, ErrMalformedSignature) {
				t.Errorf("DERToRaw() error = %v, want ErrMalformedSignature", err)
			}
		})
	}
}
