package hash

import (
	"crypto"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Digest hashes message with alg. Only the SHA-2 family used by ECDSA
// certificates and COSE ES256/ES384/ES512 is supported.
func Digest(message []byte, alg crypto.Hash) ([]byte, error) {
	var hasher hash.Hash
	switch alg {
	case crypto.SHA256:
		hasher = sha256.New()
	case crypto.SHA384:
		hasher = sha512.New384()
	case crypto.SHA512:
		hasher = sha512.New()
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %v", alg)
	}
	hasher.Write(message)
	return hasher.Sum(nil), nil
}
