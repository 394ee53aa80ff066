package vical

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/mitchellh/mapstructure"
)

const (
	keyCertificateInfos = "certificateInfos"
	keyCertificate      = "certificate"
	keyIACA             = "iaca"
)

// Info is the VICAL-level metadata next to certificateInfos. Fields that
// are absent or of an unexpected type are left zero.
type Info struct {
	Version    string    `json:"version,omitempty"`
	Provider   string    `json:"vicalProvider,omitempty"`
	Date       time.Time `json:"date,omitempty"`
	IssueID    uint64    `json:"vicalIssueID,omitempty"`
	NextUpdate time.Time `json:"nextUpdate,omitempty"`
}

// Payload is a decoded VICAL payload. Records stay raw so that one
// malformed entry cannot fail the whole list.
type Payload struct {
	Info    Info
	Records []cbor.RawMessage

	// InfoErrors maps metadata keys that were present but could not be
	// decoded to the decode error. Their Info fields are left zero.
	InfoErrors map[string]error
}

// CertificateRecord is one certificateInfos entry. Older VICALs name the
// DER field "iaca" instead of "certificate".
type CertificateRecord struct {
	Certificate []byte                 `mapstructure:"certificate"`
	IACA        []byte                 `mapstructure:"iaca"`
	Metadata    map[string]interface{} `mapstructure:",remain"`
}

// DER returns the certificate bytes, preferring "certificate" over "iaca".
func (r *CertificateRecord) DER() []byte {
	if len(r.Certificate) > 0 {
		return r.Certificate
	}
	return r.IACA
}

// DecodePayload decodes a verified payload map and its certificateInfos array.
func DecodePayload(data []byte) (*Payload, error) {
	var top map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if top == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrMalformedPayload)
	}

	infos, ok := top[keyCertificateInfos]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", ErrMalformedPayload, keyCertificateInfos)
	}
	// major type 4: array
	if len(infos) == 0 || infos[0]>>5 != 4 {
		return nil, fmt.Errorf("%w: %s is not an array", ErrMalformedPayload, keyCertificateInfos)
	}
	var records []cbor.RawMessage
	if err := decMode.Unmarshal(infos, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, keyCertificateInfos, err)
	}

	info, infoErrs := decodeInfo(top)
	return &Payload{
		Info:       info,
		Records:    records,
		InfoErrors: infoErrs,
	}, nil
}

func decodeInfo(top map[string]cbor.RawMessage) (Info, map[string]error) {
	var info Info
	errs := map[string]error{}
	decodeOptional(top, "version", &info.Version, errs)
	decodeOptional(top, "vicalProvider", &info.Provider, errs)
	decodeOptional(top, "date", &info.Date, errs)
	decodeOptional(top, "vicalIssueID", &info.IssueID, errs)
	decodeOptional(top, "nextUpdate", &info.NextUpdate, errs)
	if len(errs) == 0 {
		errs = nil
	}
	return info, errs
}

func decodeOptional(top map[string]cbor.RawMessage, key string, v interface{}, errs map[string]error) {
	raw, ok := top[key]
	if !ok {
		return
	}
	if err := decMode.Unmarshal(raw, v); err != nil {
		errs[key] = err
	}
}

// DecodeRecord decodes one certificateInfos entry. A record that is not a
// text-keyed map, or has no certificate bytes, yields
// ErrMissingCertificateBytes; a certificate field of the wrong CBOR type
// yields ErrCertificateParse.
func DecodeRecord(raw cbor.RawMessage) (*CertificateRecord, error) {
	var fields map[string]interface{}
	if err := decMode.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: record is not a map", ErrMissingCertificateBytes)
	}

	var record CertificateRecord
	if err := mapstructure.Decode(fields, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateParse, err)
	}
	if len(record.DER()) == 0 {
		return nil, fmt.Errorf("%w: neither %q nor %q present", ErrMissingCertificateBytes, keyCertificate, keyIACA)
	}
	return &record, nil
}
