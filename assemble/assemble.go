// Package assemble reconstructs a complete published key set from an
// unordered collection of per-batch export files and their detached
// signature lists.
//
// Assembly is atomic: any failure on any batch aborts the whole call.
// A key set is only ever produced when every declared batch is present,
// mutually consistent, and accepted under the caller's trust policy.
package assemble

import (
	"fmt"
	"sort"

	"github.com/coronarchive/tekexport/export"
	"github.com/coronarchive/tekexport/verify"
)

// TrustPolicy decides how many of a batch's attached signatures must
// verify for the batch to be accepted. The zero value is rejected so
// callers always choose explicitly.
type TrustPolicy int

const (
	// TrustAnySignature accepts a batch when at least one signature
	// verifies Valid.
	TrustAnySignature TrustPolicy = iota + 1

	// TrustAllSignatures accepts a batch only when every signature
	// verifies Valid.
	TrustAllSignatures
)

func (p TrustPolicy) String() string {
	switch p {
	case TrustAnySignature:
		return "any"
	case TrustAllSignatures:
		return "all"
	default:
		return fmt.Sprintf("TrustPolicy(%d)", int(p))
	}
}

// Batch is one export file and its paired signature file, as raw bytes.
// Signatures are verified over ExportBytes exactly as supplied.
type Batch struct {
	ExportBytes    []byte
	SignatureBytes []byte
}

// CompleteKeySet is the union of all keys across an accepted batch set,
// in batch order then file-internal order. No deduplication is
// performed; duplicate key material across batches is the caller's
// policy decision.
type CompleteKeySet struct {
	Region         string
	StartTimestamp uint64
	EndTimestamp   uint64
	BatchSize      int32
	Keys           []export.TemporaryExposureKey
}

type decodedBatch struct {
	raw    Batch
	export *export.TemporaryExposureKeyExport
	sigs   *export.TEKSignatureList
}

// Assemble validates and stitches a batch set back into the complete
// key set for its window/region.
//
// Every file must declare the same batch_size, batch_num values must
// form a permutation of 1..batch_size, and the window/region fields
// must be identical across the set. Each batch must be accepted under
// the given trust policy against the supplied key registry.
func Assemble(batches []Batch, lookup verify.KeyLookup, policy TrustPolicy) (*CompleteKeySet, error) {
	if policy != TrustAnySignature && policy != TrustAllSignatures {
		return nil, fmt.Errorf("assemble: unrecognized trust policy %s", policy)
	}
	if len(batches) == 0 {
		return nil, export.NewError(export.KindIncompleteBatchSet, "TEK-ASM-001", "no batch files supplied")
	}

	decoded := make([]decodedBatch, 0, len(batches))
	for _, b := range batches {
		e, err := export.Decode(b.ExportBytes)
		if err != nil {
			return nil, err
		}
		l, err := export.DecodeSignatureList(b.SignatureBytes)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, decodedBatch{raw: b, export: e, sigs: l})
	}

	first := decoded[0].export
	if int32(len(decoded)) != first.BatchSize {
		return nil, export.NewError(export.KindIncompleteBatchSet, "TEK-ASM-002",
			fmt.Sprintf("have %d files, batch_size declares %d", len(decoded), first.BatchSize))
	}

	seen := make(map[int32]bool, len(decoded))
	for _, d := range decoded {
		e := d.export
		if e.BatchSize != first.BatchSize {
			return nil, export.NewError(export.KindIncompleteBatchSet, "TEK-ASM-003",
				"batch_size differs across files")
		}
		if seen[e.BatchNum] {
			return nil, export.NewError(export.KindIncompleteBatchSet, "TEK-ASM-004",
				fmt.Sprintf("duplicate batch_num %d", e.BatchNum))
		}
		seen[e.BatchNum] = true

		if e.Region != first.Region || e.StartTimestamp != first.StartTimestamp || e.EndTimestamp != first.EndTimestamp {
			return nil, export.NewError(export.KindInconsistentWindow, "TEK-ASM-011",
				"window/region fields differ across files")
		}

		if err := checkSignatureList(e, d.sigs); err != nil {
			return nil, err
		}
		if err := verifyBatch(d, lookup, policy); err != nil {
			return nil, err
		}
	}
	for n := int32(1); n <= first.BatchSize; n++ {
		if !seen[n] {
			return nil, export.NewError(export.KindIncompleteBatchSet, "TEK-ASM-005",
				fmt.Sprintf("missing batch_num %d", n))
		}
	}

	sort.Slice(decoded, func(i, j int) bool {
		return decoded[i].export.BatchNum < decoded[j].export.BatchNum
	})

	set := &CompleteKeySet{
		Region:         first.Region,
		StartTimestamp: first.StartTimestamp,
		EndTimestamp:   first.EndTimestamp,
		BatchSize:      first.BatchSize,
	}
	for _, d := range decoded {
		set.Keys = append(set.Keys, d.export.Keys...)
	}
	return set, nil
}

// checkSignatureList enforces that the detached signature artifact
// actually belongs to its export file.
func checkSignatureList(e *export.TemporaryExposureKeyExport, l *export.TEKSignatureList) error {
	if len(l.Signatures) == 0 {
		return export.NewError(export.KindBatchSignatureMismatch, "TEK-ASM-021",
			fmt.Sprintf("batch %d has an empty signature list", e.BatchNum))
	}
	for i := range l.Signatures {
		s := &l.Signatures[i]
		if s.BatchNum != e.BatchNum || s.BatchSize != e.BatchSize {
			return export.NewError(export.KindBatchSignatureMismatch, "TEK-ASM-022",
				fmt.Sprintf("signature numbered %d/%d does not match export %d/%d",
					s.BatchNum, s.BatchSize, e.BatchNum, e.BatchSize))
		}
	}
	return nil
}

// verifyBatch applies the trust policy. Verifier failures
// (UnsupportedAlgorithm, MalformedSignature) propagate unchanged.
func verifyBatch(d decodedBatch, lookup verify.KeyLookup, policy TrustPolicy) error {
	anyValid := false
	var firstBad verify.Result
	for i := range d.sigs.Signatures {
		s := &d.sigs.Signatures[i]
		res, err := verify.Verify(d.raw.ExportBytes, s.Signature, s.SignatureInfo, lookup)
		if err != nil {
			return err
		}
		switch res {
		case verify.ResultValid:
			anyValid = true
		default:
			if firstBad == "" {
				firstBad = res
			}
			if policy == TrustAllSignatures {
				return rejectBatch(d.export.BatchNum, res)
			}
		}
	}
	if !anyValid {
		return rejectBatch(d.export.BatchNum, firstBad)
	}
	return nil
}

func rejectBatch(batchNum int32, res verify.Result) error {
	if res == verify.ResultKeyNotFound {
		return export.NewError(export.KindKeyNotFound, "TEK-ASM-031",
			fmt.Sprintf("batch %d: no public key for signature", batchNum))
	}
	return export.NewError(export.KindBatchSignatureMismatch, "TEK-ASM-032",
		fmt.Sprintf("batch %d: signature did not verify under policy", batchNum))
}
