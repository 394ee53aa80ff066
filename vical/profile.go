package vical

import (
	"crypto"
	"fmt"

	"github.com/veraison/go-cose"
)

// AlgorithmProfile is the hash and R||S coordinate width implied by a COSE
// algorithm identifier.
type AlgorithmProfile struct {
	Algorithm  cose.Algorithm
	Hash       crypto.Hash
	CoordWidth int

	// Degraded is set when the header named no algorithm, or one outside
	// the supported set, and the ES256 profile was assumed instead.
	Degraded bool
	Reason   string
}

var profiles = map[cose.Algorithm]AlgorithmProfile{
	cose.AlgorithmES256: {Algorithm: cose.AlgorithmES256, Hash: crypto.SHA256, CoordWidth: 32},
	cose.AlgorithmES384: {Algorithm: cose.AlgorithmES384, Hash: crypto.SHA384, CoordWidth: 48},
}

// SelectProfile maps an algorithm id to its profile. When present is false
// or alg is unsupported the ES256 profile is returned marked Degraded.
func SelectProfile(alg cose.Algorithm, present bool) AlgorithmProfile {
	if !present {
		p := profiles[cose.AlgorithmES256]
		p.Degraded = true
		p.Reason = "protected header has no alg parameter"
		return p
	}
	if p, ok := profiles[alg]; ok {
		return p
	}
	p := profiles[cose.AlgorithmES256]
	p.Degraded = true
	p.Reason = fmt.Sprintf("unsupported alg %d", int64(alg))
	return p
}

// Profile selects the algorithm profile named by the header.
func (h ProtectedHeader) Profile() AlgorithmProfile {
	alg, ok := h.Algorithm()
	if _, present := h[headerLabelAlgorithm]; present && !ok {
		p := profiles[cose.AlgorithmES256]
		p.Degraded = true
		p.Reason = "alg parameter is not an integer"
		return p
	}
	return SelectProfile(alg, ok)
}

func (p AlgorithmProfile) String() string {
	if p.Degraded {
		return fmt.Sprintf("%s (assumed: %s)", p.Algorithm, p.Reason)
	}
	return p.Algorithm.String()
}
