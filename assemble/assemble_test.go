package assemble

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/coronarchive/tekexport/export"
	"github.com/coronarchive/tekexport/keys"
	"github.com/coronarchive/tekexport/verify"
)

type fixture struct {
	priv *ecdsa.PrivateKey
	reg  *verify.StaticRegistry
	info export.SignatureInfo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	reg := verify.NewStaticRegistry()
	reg.Add("at", "v1", &priv.PublicKey)
	return &fixture{
		priv: priv,
		reg:  reg,
		info: export.SignatureInfo{
			VerificationKeyID:      "at",
			VerificationKeyVersion: "v1",
			SignatureAlgorithm:     verify.AlgECDSAP256SHA256,
		},
	}
}

// makeBatch builds one signed batch file carrying keysPerBatch keys.
func (f *fixture) makeBatch(t *testing.T, batchNum, batchSize int32, keysPerBatch int) Batch {
	t.Helper()
	e := &export.TemporaryExposureKeyExport{
		StartTimestamp: 1_594_000_000,
		EndTimestamp:   1_594_086_400,
		Region:         "AT",
		BatchNum:       batchNum,
		BatchSize:      batchSize,
		SignatureInfos: []export.SignatureInfo{f.info},
	}
	for i := 0; i < keysPerBatch; i++ {
		data := bytes.Repeat([]byte{byte(batchNum)<<4 | byte(i)}, export.KeyLength)
		k, err := export.NewTemporaryExposureKey(data, 2, 2650320+int32(i)*144, 144)
		if err != nil {
			t.Fatalf("NewTemporaryExposureKey: %v", err)
		}
		e.Keys = append(e.Keys, k)
	}
	exportBytes, err := export.Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sig, err := keys.SignExportECDSA(exportBytes, f.priv)
	if err != nil {
		t.Fatalf("SignExportECDSA: %v", err)
	}
	sigBytes, err := export.EncodeSignatureList(keys.BuildSignatureList(f.info, batchNum, batchSize, sig))
	if err != nil {
		t.Fatalf("EncodeSignatureList: %v", err)
	}
	return Batch{ExportBytes: exportBytes, SignatureBytes: sigBytes}
}

func TestAssemble_FiveBatches(t *testing.T) {
	f := newFixture(t)
	var batches []Batch
	// Deliberately out of order; assembly must reconcile numbering.
	for _, n := range []int32{3, 1, 5, 2, 4} {
		batches = append(batches, f.makeBatch(t, n, 5, int(n)))
	}
	set, err := Assemble(batches, f.reg, TrustAnySignature)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(set.Keys) != 1+2+3+4+5 {
		t.Fatalf("expected 15 keys, got %d", len(set.Keys))
	}
	if set.Region != "AT" || set.BatchSize != 5 {
		t.Fatalf("unexpected set metadata: %+v", set)
	}
	// Keys must come out in batch order: batch 1 contributes 1 key,
	// batch 2 the next two, and so on.
	if set.Keys[0].KeyData[0] != 0x10 {
		t.Fatalf("keys not in batch order")
	}
	if set.Keys[1].KeyData[0] != 0x20 {
		t.Fatalf("keys not in batch order")
	}
}

func TestAssemble_MissingBatch(t *testing.T) {
	f := newFixture(t)
	var batches []Batch
	for _, n := range []int32{1, 2, 4, 5} {
		batches = append(batches, f.makeBatch(t, n, 5, 1))
	}
	_, err := Assemble(batches, f.reg, TrustAnySignature)
	if !export.IsKind(err, export.KindIncompleteBatchSet) {
		t.Fatalf("expected IncompleteBatchSet, got %v", err)
	}
}

func TestAssemble_DuplicateBatch(t *testing.T) {
	f := newFixture(t)
	batches := []Batch{
		f.makeBatch(t, 1, 2, 1),
		f.makeBatch(t, 1, 2, 1),
	}
	_, err := Assemble(batches, f.reg, TrustAnySignature)
	if !export.IsKind(err, export.KindIncompleteBatchSet) {
		t.Fatalf("expected IncompleteBatchSet, got %v", err)
	}
}

func TestAssemble_InconsistentWindow(t *testing.T) {
	f := newFixture(t)
	b1 := f.makeBatch(t, 1, 2, 1)
	b2 := f.makeBatch(t, 2, 2, 1)

	// Rebuild the second batch with a different region.
	e, err := export.Decode(b2.ExportBytes)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	e.Region = "DE"
	exportBytes, err := export.Encode(e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	sig, err := keys.SignExportECDSA(exportBytes, f.priv)
	if err != nil {
		t.Fatalf("SignExportECDSA: %v", err)
	}
	sigBytes, err := export.EncodeSignatureList(keys.BuildSignatureList(f.info, 2, 2, sig))
	if err != nil {
		t.Fatalf("EncodeSignatureList: %v", err)
	}

	_, err = Assemble([]Batch{b1, {ExportBytes: exportBytes, SignatureBytes: sigBytes}}, f.reg, TrustAnySignature)
	if !export.IsKind(err, export.KindInconsistentWindow) {
		t.Fatalf("expected InconsistentWindow, got %v", err)
	}
}

func TestAssemble_SignatureListNumberingMismatch(t *testing.T) {
	f := newFixture(t)
	b := f.makeBatch(t, 1, 1, 1)

	// Re-pair the export with a signature list claiming 2 of 2.
	sig, err := keys.SignExportECDSA(b.ExportBytes, f.priv)
	if err != nil {
		t.Fatalf("SignExportECDSA: %v", err)
	}
	wrong, err := export.EncodeSignatureList(keys.BuildSignatureList(f.info, 2, 2, sig))
	if err != nil {
		t.Fatalf("EncodeSignatureList: %v", err)
	}

	_, err = Assemble([]Batch{{ExportBytes: b.ExportBytes, SignatureBytes: wrong}}, f.reg, TrustAnySignature)
	if !export.IsKind(err, export.KindBatchSignatureMismatch) {
		t.Fatalf("expected BatchSignatureMismatch, got %v", err)
	}
}

func TestAssemble_TamperedBatchRejected(t *testing.T) {
	f := newFixture(t)
	b := f.makeBatch(t, 1, 1, 2)
	tampered := append([]byte(nil), b.ExportBytes...)
	tampered[len(tampered)-1] ^= 0x01

	_, err := Assemble([]Batch{{ExportBytes: tampered, SignatureBytes: b.SignatureBytes}}, f.reg, TrustAnySignature)
	if err == nil {
		t.Fatalf("expected tampered batch to be rejected")
	}
}

func TestAssemble_KeyNotFoundPropagates(t *testing.T) {
	f := newFixture(t)
	b := f.makeBatch(t, 1, 1, 1)
	_, err := Assemble([]Batch{b}, verify.NewStaticRegistry(), TrustAnySignature)
	if !export.IsKind(err, export.KindKeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func TestAssemble_ZeroPolicyRejected(t *testing.T) {
	f := newFixture(t)
	b := f.makeBatch(t, 1, 1, 1)
	if _, err := Assemble([]Batch{b}, f.reg, 0); err == nil {
		t.Fatalf("expected unrecognized policy error")
	}
}

// twoSignerBatch attaches one valid and one invalid signature to the
// same export file.
func twoSignerBatch(t *testing.T, f *fixture) (Batch, *verify.StaticRegistry) {
	t.Helper()
	otherPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	otherInfo := export.SignatureInfo{
		VerificationKeyID:      "at",
		VerificationKeyVersion: "v2",
		SignatureAlgorithm:     verify.AlgECDSAP256SHA256,
	}

	b := f.makeBatch(t, 1, 1, 1)
	goodSig, err := keys.SignExportECDSA(b.ExportBytes, f.priv)
	if err != nil {
		t.Fatalf("SignExportECDSA: %v", err)
	}
	// Signed by the other key but registered under it as well; the
	// bytes signed are wrong for this batch, so it verifies Invalid.
	badSig, err := keys.SignExportECDSA([]byte("different bytes"), otherPriv)
	if err != nil {
		t.Fatalf("SignExportECDSA: %v", err)
	}

	list := keys.BuildSignatureList(f.info, 1, 1, goodSig)
	list.Signatures = append(list.Signatures, export.TEKSignature{
		SignatureInfo: otherInfo,
		BatchNum:      1,
		BatchSize:     1,
		Signature:     badSig,
	})
	sigBytes, err := export.EncodeSignatureList(list)
	if err != nil {
		t.Fatalf("EncodeSignatureList: %v", err)
	}

	reg := verify.NewStaticRegistry()
	reg.Add("at", "v1", &f.priv.PublicKey)
	reg.Add("at", "v2", &otherPriv.PublicKey)
	return Batch{ExportBytes: b.ExportBytes, SignatureBytes: sigBytes}, reg
}

func TestAssemble_PolicyAnyAcceptsMixedSignatures(t *testing.T) {
	f := newFixture(t)
	b, reg := twoSignerBatch(t, f)
	set, err := Assemble([]Batch{b}, reg, TrustAnySignature)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(set.Keys) != 1 {
		t.Fatalf("expected 1 key, got %d", len(set.Keys))
	}
}

func TestAssemble_PolicyAllRejectsMixedSignatures(t *testing.T) {
	f := newFixture(t)
	b, reg := twoSignerBatch(t, f)
	_, err := Assemble([]Batch{b}, reg, TrustAllSignatures)
	if !export.IsKind(err, export.KindBatchSignatureMismatch) {
		t.Fatalf("expected BatchSignatureMismatch, got %v", err)
	}
}
