package vical

import (
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"
)

// CBOR tag of a tagged COSE_Sign1 message (RFC 9052).
const coseSign1Tag = 18

// Context string of a COSE_Sign1 Sig_structure.
const sigStructureContext = "Signature1"

// Label of the "alg" protected header parameter.
const headerLabelAlgorithm int64 = 1

// decMode rejects duplicate map keys so that a payload cannot carry two
// competing certificateInfos arrays.
var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// Envelope is the COSE_Sign1 shaped outer structure of a VICAL:
// [protected_headers, unprotected_headers, payload, signature].
// Protected header and payload stay undecoded; the signature covers them
// byte for byte.
type Envelope struct {
	ProtectedHeaderBytes []byte
	UnprotectedHeader    interface{}
	PayloadBytes         []byte
	SignatureBytes       []byte
}

// DecodeEnvelope decodes a VICAL envelope. Envelopes wrapped in the
// COSE_Sign1 tag are accepted; elements past the fourth are ignored.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var raw interface{}
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if tag, ok := raw.(cbor.Tag); ok {
		if tag.Number != coseSign1Tag {
			return nil, fmt.Errorf("%w: unexpected CBOR tag %d", ErrMalformedEnvelope, tag.Number)
		}
		raw = tag.Content
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: expected array, got %T", ErrMalformedEnvelope, raw)
	}
	if len(items) < 4 {
		return nil, fmt.Errorf("%w: expected at least 4 elements, got %d", ErrMalformedEnvelope, len(items))
	}

	protected, ok := items[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: protected header is %T, want byte string", ErrMalformedEnvelope, items[0])
	}
	payload, ok := items[2].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: payload is %T, want byte string", ErrMalformedEnvelope, items[2])
	}
	signature, ok := items[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: signature is %T, want byte string", ErrMalformedEnvelope, items[3])
	}

	return &Envelope{
		ProtectedHeaderBytes: protected,
		UnprotectedHeader:    items[1],
		PayloadBytes:         payload,
		SignatureBytes:       signature,
	}, nil
}

// ProtectedHeader holds the integer-labelled protected header parameters.
// Text labels are dropped; nothing here consults them.
type ProtectedHeader map[int64]interface{}

// DecodeProtectedHeader decodes the serialized protected header map. A
// zero-length byte string is the COSE encoding of an empty header.
func DecodeProtectedHeader(data []byte) (ProtectedHeader, error) {
	header := ProtectedHeader{}
	if len(data) == 0 {
		return header, nil
	}

	var raw map[interface{}]interface{}
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: header is null", ErrMalformedHeader)
	}

	for k, v := range raw {
		if label, ok := toInt64(k); ok {
			header[label] = v
		}
	}
	return header, nil
}

// Algorithm returns the "alg" parameter, if present and an integer.
func (h ProtectedHeader) Algorithm() (cose.Algorithm, bool) {
	v, ok := h[headerLabelAlgorithm]
	if !ok {
		return 0, false
	}
	alg, ok := toInt64(v)
	if !ok {
		return 0, false
	}
	return cose.Algorithm(alg), true
}

// SigStructure returns the bytes a COSE_Sign1 signature is computed over:
// ["Signature1", protected, h'', payload].
func SigStructure(protectedHeaderBytes, payloadBytes []byte) ([]byte, error) {
	tbs, err := cbor.Marshal([]interface{}{
		sigStructureContext,
		nonNil(protectedHeaderBytes),
		[]byte{}, // external_aad
		nonNil(payloadBytes),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Sig_structure: %w", err)
	}
	return tbs, nil
}

// nonNil keeps nil slices encoding as h'' instead of CBOR null.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
