package cryptoroot

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/kokukuma/vical-verifier/pkg/ecdsasig"
	"github.com/kokukuma/vical-verifier/pkg/hash"
)

const mdlDocType = "org.iso.18013.5.1.mDL"

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort:    cbor.SortCanonical,
		Time:    cbor.TimeRFC3339,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// IssuerRecord builds a certificateInfos entry for cert the way VICAL
// providers publish it, storing the DER under key.
func IssuerRecord(cert *x509.Certificate, key string) map[string]interface{} {
	record := map[string]interface{}{
		"serialNumber":       cert.SerialNumber.Bytes(),
		"ski":                cert.SubjectKeyId,
		"docType":            []string{mdlDocType},
		"certificateProfile": []string{"IACA"},
		"issuingAuthority":   cert.Subject.CommonName,
		"issuingCountry":     "US",
		"notBefore":          cert.NotBefore.UTC().Truncate(time.Second),
		"notAfter":           cert.NotAfter.UTC().Truncate(time.Second),
	}
	if len(cert.Subject.Province) > 0 {
		record["stateOrProvinceName"] = cert.Subject.Province[0]
	}
	if key != "" {
		record[key] = cert.Raw
	}
	return record
}

// BuildPayload CBOR-encodes a VICAL payload holding records.
func BuildPayload(provider string, issueID uint, records []map[string]interface{}) ([]byte, error) {
	infos := make([]interface{}, 0, len(records))
	for _, r := range records {
		infos = append(infos, r)
	}
	now := time.Now().UTC().Truncate(time.Second)
	payload := map[string]interface{}{
		"version":          "1.0",
		"vicalProvider":    provider,
		"date":             now,
		"vicalIssueID":     issueID,
		"nextUpdate":       now.AddDate(0, 0, 30),
		"certificateInfos": infos,
	}
	return encMode.Marshal(payload)
}

// SignEnvelope signs payload with key as an untagged COSE_Sign1 message.
func SignEnvelope(payload []byte, key *ecdsa.PrivateKey, alg cose.Algorithm) ([]byte, error) {
	msg, err := sign1(payload, key, alg)
	if err != nil {
		return nil, err
	}
	return (*cose.UntaggedSign1Message)(msg).MarshalCBOR()
}

// SignTaggedEnvelope is SignEnvelope with the COSE_Sign1 tag (18).
func SignTaggedEnvelope(payload []byte, key *ecdsa.PrivateKey, alg cose.Algorithm) ([]byte, error) {
	msg, err := sign1(payload, key, alg)
	if err != nil {
		return nil, err
	}
	return msg.MarshalCBOR()
}

func sign1(payload []byte, key *ecdsa.PrivateKey, alg cose.Algorithm) (*cose.Sign1Message, error) {
	signer, err := cose.NewSigner(alg, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	msg := &cose.Sign1Message{
		Headers: cose.Headers{
			Protected: cose.ProtectedHeader{
				cose.HeaderLabelAlgorithm: alg,
			},
		},
		Payload: payload,
	}
	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return msg, nil
}

// SignEnvelopeWithHeader signs payload under caller-supplied protected
// header bytes, hashing with h and emitting a coordWidth R||S signature.
// It lets fixtures carry headers go-cose refuses to produce, such as a
// missing or unknown algorithm.
func SignEnvelopeWithHeader(protected, payload []byte, key *ecdsa.PrivateKey, h crypto.Hash, coordWidth int) ([]byte, error) {
	tbs, err := cbor.Marshal([]interface{}{"Signature1", protected, []byte{}, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal Sig_structure: %w", err)
	}
	sig, err := SignRaw(key, h, coordWidth, tbs)
	if err != nil {
		return nil, err
	}
	return RawEnvelope(protected, payload, sig)
}

// RawEnvelope assembles [protected, {}, payload, signature] without signing.
func RawEnvelope(protected, payload, signature []byte) ([]byte, error) {
	return cbor.Marshal([]interface{}{
		protected,
		map[interface{}]interface{}{},
		payload,
		signature,
	})
}

// SignRaw signs the h digest of message and returns the fixed-width R||S form.
func SignRaw(key *ecdsa.PrivateKey, h crypto.Hash, coordWidth int, message []byte) ([]byte, error) {
	digest, err := hash.Digest(message, h)
	if err != nil {
		return nil, err
	}
	der, err := ecdsa.SignASN1(rand.Reader, key, digest)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return ecdsasig.DERToRaw(der, coordWidth)
}
