// Package verify validates detached batch signatures against the
// canonical bytes of an export file.
//
// Verification is always performed over the exact bytes the signature
// was computed on; callers must pass the original file bytes, never a
// re-serialized form.
package verify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/asn1"
	"math/big"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"github.com/coronarchive/tekexport/export"
)

// Result is the tri-state outcome of verifying one signature.
// Anything other than ResultValid means "do not trust this batch".
type Result string

const (
	ResultValid       Result = "Valid"
	ResultInvalid     Result = "Invalid"
	ResultKeyNotFound Result = "KeyNotFound"
)

// Algorithm identifier strings accepted in SignatureInfo.
//
// AlgECDSAP256SHA256 is the published wire algorithm; real signature
// files frequently carry its OID spelling, which is accepted as an
// alias. The remaining algorithms are library extensions following the
// same naming convention.
const (
	AlgECDSAP256SHA256  = "ECDSA-P256-SHA256"
	AlgECDSAP256SHA512  = "ECDSA-P256-SHA512"
	AlgECDSAP256SHA3256 = "ECDSA-P256-SHA3-256"
	AlgEd25519          = "ed25519"
	AlgDilithium3       = "dilithium3"

	oidECDSAWithSHA256 = "1.2.840.10045.4.3.2"
)

// KeyLookup maps (verification_key_id, verification_key_version) to a
// public key. Implementations must be safe for concurrent reads; the
// verifier never manages key material itself.
type KeyLookup interface {
	PublicKey(keyID, keyVersion string) (crypto.PublicKey, bool)
}

// Verify checks one detached signature over the canonical export bytes.
//
// Returns (ResultValid, nil), (ResultInvalid, nil) or
// (ResultKeyNotFound, nil) for the tri-state outcome. A non-nil error
// (unsupported algorithm, malformed signature encoding) always carries
// ResultInvalid; callers must treat every non-Valid outcome as
// untrusted.
func Verify(canonical, sig []byte, info export.SignatureInfo, lookup KeyLookup) (Result, error) {
	if lookup == nil {
		return ResultKeyNotFound, nil
	}
	pub, ok := lookup.PublicKey(info.VerificationKeyID, info.VerificationKeyVersion)
	if !ok || pub == nil {
		return ResultKeyNotFound, nil
	}

	switch normalizeAlgorithm(info.SignatureAlgorithm) {
	case AlgECDSAP256SHA256:
		return verifyECDSA(canonical, sig, pub, "sha256")
	case AlgECDSAP256SHA512:
		return verifyECDSA(canonical, sig, pub, "sha512")
	case AlgECDSAP256SHA3256:
		return verifyECDSA(canonical, sig, pub, "sha3-256")
	case AlgEd25519:
		return verifyEd25519(canonical, sig, pub)
	case AlgDilithium3:
		return verifyDilithium3(canonical, sig, pub)
	default:
		return ResultInvalid, export.NewError(export.KindUnsupportedAlgorithm, "TEK-SIG-001",
			"unsupported signature algorithm: "+info.SignatureAlgorithm)
	}
}

func normalizeAlgorithm(alg string) string {
	if alg == oidECDSAWithSHA256 {
		return AlgECDSAP256SHA256
	}
	return strings.TrimSpace(alg)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, export.NewError(export.KindUnsupportedAlgorithm, "TEK-SIG-002", "unsupported hash algorithm")
	}
}

// ecdsaSignature is the ASN.1 SEQUENCE of two integers an elliptic
// curve signature is encoded as.
type ecdsaSignature struct {
	R, S *big.Int
}

func verifyECDSA(canonical, sig []byte, pub crypto.PublicKey, hashAlg string) (Result, error) {
	pk, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return ResultKeyNotFound, nil
	}
	var es ecdsaSignature
	rest, err := asn1.Unmarshal(sig, &es)
	if err != nil || len(rest) != 0 {
		return ResultInvalid, export.WrapError(export.KindMalformedSignature, "TEK-SIG-101",
			"signature is not a DER sequence of two integers", err)
	}
	if es.R == nil || es.S == nil || es.R.Sign() <= 0 || es.S.Sign() <= 0 {
		return ResultInvalid, export.NewError(export.KindMalformedSignature, "TEK-SIG-102",
			"signature integers out of range")
	}
	digest, err := digestFor(hashAlg, canonical)
	if err != nil {
		return ResultInvalid, err
	}
	if !ecdsa.Verify(pk, digest, es.R, es.S) {
		return ResultInvalid, nil
	}
	return ResultValid, nil
}

func verifyEd25519(canonical, sig []byte, pub crypto.PublicKey) (Result, error) {
	pk, ok := pub.(ed25519.PublicKey)
	if !ok {
		return ResultKeyNotFound, nil
	}
	if len(sig) != ed25519.SignatureSize {
		return ResultInvalid, export.NewError(export.KindMalformedSignature, "TEK-SIG-111",
			"invalid ed25519 signature length")
	}
	digest := sha256.Sum256(canonical)
	if !ed25519.Verify(pk, digest[:], sig) {
		return ResultInvalid, nil
	}
	return ResultValid, nil
}

func verifyDilithium3(canonical, sig []byte, pub crypto.PublicKey) (Result, error) {
	pk, ok := pub.(*mode3.PublicKey)
	if !ok {
		return ResultKeyNotFound, nil
	}
	if len(sig) != mode3.SignatureSize {
		return ResultInvalid, export.NewError(export.KindMalformedSignature, "TEK-SIG-121",
			"invalid dilithium3 signature length")
	}
	digest := sha256.Sum256(canonical)
	if !mode3.Verify(pk, digest[:], sig) {
		return ResultInvalid, nil
	}
	return ResultValid, nil
}
