// Package ecdsasig converts ECDSA signatures between the fixed-width R||S
// form used by COSE and the ASN.1 DER form used by X.509 and crypto/ecdsa.
package ecdsasig

import (
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// ErrMalformedSignature is returned when a signature does not have the
// expected shape for the curve width it is decoded with.
var ErrMalformedSignature = errors.New("malformed signature")

// RawToDER encodes raw, the concatenation of two big-endian coordWidth-byte
// integers R and S, as a DER SEQUENCE of two INTEGERs.
func RawToDER(raw []byte, coordWidth int) ([]byte, error) {
	if coordWidth <= 0 {
		return nil, fmt.Errorf("%w: invalid coordinate width %d", ErrMalformedSignature, coordWidth)
	}
	if len(raw) != 2*coordWidth {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(raw), 2*coordWidth)
	}

	r := new(big.Int).SetBytes(raw[:coordWidth])
	s := new(big.Int).SetBytes(raw[coordWidth:])

	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddASN1BigInt(r)
		b.AddASN1BigInt(s)
	})
	der, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DER signature: %w", err)
	}
	return der, nil
}

// DERToRaw decodes a DER ECDSA signature into R||S, left-padding each
// integer to coordWidth bytes.
func DERToRaw(der []byte, coordWidth int) ([]byte, error) {
	if coordWidth <= 0 {
		return nil, fmt.Errorf("%w: invalid coordinate width %d", ErrMalformedSignature, coordWidth)
	}

	var (
		r, s  = new(big.Int), new(big.Int)
		inner cryptobyte.String
	)
	input := cryptobyte.String(der)
	if !input.ReadASN1(&inner, asn1.SEQUENCE) ||
		!input.Empty() ||
		!inner.ReadASN1Integer(r) ||
		!inner.ReadASN1Integer(s) ||
		!inner.Empty() {
		return nil, fmt.Errorf("%w: invalid ASN.1 structure", ErrMalformedSignature)
	}

	raw := make([]byte, 2*coordWidth)
	if err := fill(raw[:coordWidth], r); err != nil {
		return nil, fmt.Errorf("r: %w", err)
	}
	if err := fill(raw[coordWidth:], s); err != nil {
		return nil, fmt.Errorf("s: %w", err)
	}
	return raw, nil
}

func fill(dst []byte, n *big.Int) error {
	if n.Sign() < 0 {
		return fmt.Errorf("%w: negative integer", ErrMalformedSignature)
	}
	if (n.BitLen()+7)/8 > len(dst) {
		return fmt.Errorf("%w: integer exceeds %d bytes", ErrMalformedSignature, len(dst))
	}
	n.FillBytes(dst)
	return nil
}
