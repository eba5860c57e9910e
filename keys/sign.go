// Package keys provides the signing side of the export format and a
// small filesystem store for versioned signing keys.
package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/coronarchive/tekexport/export"
)

// SignExportECDSA returns an ASN.1 DER (r,s) signature over
// sha256(exportBytes) with a P-256 key. This is the published wire
// algorithm for export signatures.
func SignExportECDSA(exportBytes []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(exportBytes)
	return ecdsa.SignASN1(rand.Reader, priv, digest[:])
}

// SignExportEd25519 signs sha256(exportBytes) with an Ed25519 key.
func SignExportEd25519(exportBytes []byte, priv ed25519.PrivateKey) []byte {
	digest := sha256.Sum256(exportBytes)
	return ed25519.Sign(priv, digest[:])
}

// SignExportDilithium3 signs sha256(exportBytes) with a Dilithium3
// (post-quantum) key.
func SignExportDilithium3(exportBytes []byte, priv *mode3.PrivateKey) []byte {
	digest := sha256.Sum256(exportBytes)
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, digest[:], sig)
	return sig
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// BuildSignatureList pairs one signature with its SignatureInfo and the
// batch numbering of the export file it covers.
func BuildSignatureList(info export.SignatureInfo, batchNum, batchSize int32, sig []byte) *export.TEKSignatureList {
	return &export.TEKSignatureList{Signatures: []export.TEKSignature{{
		SignatureInfo: info,
		BatchNum:      batchNum,
		BatchSize:     batchSize,
		Signature:     append([]byte(nil), sig...),
	}}}
}
