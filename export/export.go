// Package export implements the Temporary Exposure Key export container
// format: the binary batch envelope, its companion detached signature
// list, and the value model for individual keys.
//
// An export file is a fixed 16-byte header followed by a
// TemporaryExposureKeyExport message in protobuf wire encoding. The
// companion signature file is a bare TEKSignatureList message. Field
// numbers are part of the published wire contract and must not change.
//
// Encode emits canonical bytes: fields in declaration order, optional
// scalars omitted at their default value, unknown fields re-emitted
// verbatim after known fields. Signatures are computed over exactly
// these bytes, so two encodes of the same value are byte-identical.
package export

const (
	// Header is the fixed 16-byte magic that opens every export file.
	Header = "EK Export v1    "

	// HeaderSize is the length of Header in bytes.
	HeaderSize = 16

	// KeyLength is the length of TEK key material (AES-128 class keys).
	KeyLength = 16

	// DefaultRollingPeriod is the rolling_period applied when the field
	// is omitted on the wire: 144 ten-minute intervals, one day.
	DefaultRollingPeriod = 144
)

// TemporaryExposureKey is one anonymized exposure key with its
// risk/interval metadata. Immutable once constructed.
type TemporaryExposureKey struct {
	// KeyData is the opaque key material, exactly KeyLength bytes.
	KeyData []byte

	// TransmissionRiskLevel is a small integer whose meaning is defined
	// by the publishing health authority.
	TransmissionRiskLevel int32

	// RollingStartIntervalNumber counts 10-minute intervals since the
	// Unix epoch and marks the start of the key's validity window.
	RollingStartIntervalNumber int32

	// RollingPeriod is the validity length in 10-minute intervals.
	// Always > 0; DefaultRollingPeriod when omitted on the wire.
	RollingPeriod int32

	unknown []byte
}

// NewTemporaryExposureKey constructs a validated key record. The
// rollingPeriod must be explicit; the wire-level default of 144 is
// applied only when decoding files that omit the field.
func NewTemporaryExposureKey(keyData []byte, riskLevel, rollingStart, rollingPeriod int32) (TemporaryExposureKey, error) {
	k := TemporaryExposureKey{
		KeyData:                    append([]byte(nil), keyData...),
		TransmissionRiskLevel:      riskLevel,
		RollingStartIntervalNumber: rollingStart,
		RollingPeriod:              rollingPeriod,
	}
	if err := k.Validate(); err != nil {
		return TemporaryExposureKey{}, err
	}
	return k, nil
}

// Validate enforces the key record invariants.
func (k *TemporaryExposureKey) Validate() error {
	if len(k.KeyData) != KeyLength {
		return NewError(KindInvalidKeyRecord, "TEK-KEY-001", "key_data must be exactly 16 bytes")
	}
	if k.RollingPeriod <= 0 {
		return NewError(KindInvalidKeyRecord, "TEK-KEY-002", "rolling_period must be positive")
	}
	if k.RollingStartIntervalNumber < 0 {
		return NewError(KindInvalidKeyRecord, "TEK-KEY-003", "rolling_start_interval_number must not be negative")
	}
	return nil
}

// SignatureInfo identifies a signing key. It is a lookup key into an
// externally supplied public-key registry; no key material lives here.
type SignatureInfo struct {
	AppBundleID            string
	AndroidPackage         string
	VerificationKeyVersion string
	VerificationKeyID      string

	// SignatureAlgorithm is an algorithm identifier string, e.g.
	// "ECDSA-P256-SHA256" or its OID spelling "1.2.840.10045.4.3.2".
	SignatureAlgorithm string

	unknown []byte
}

// TemporaryExposureKeyExport is one batch file: the keys published for
// a window/region, numbered batch_num of batch_size.
type TemporaryExposureKeyExport struct {
	// StartTimestamp/EndTimestamp bound the window in UTC seconds,
	// half-open, StartTimestamp <= EndTimestamp.
	StartTimestamp uint64
	EndTimestamp   uint64

	Region string

	// BatchNum is the 1-based ordinal of this file within the set of
	// BatchSize files. 1 <= BatchNum <= BatchSize.
	BatchNum  int32
	BatchSize int32

	SignatureInfos []SignatureInfo
	Keys           []TemporaryExposureKey

	unknown []byte
}

// Validate enforces the batch-level integer invariants and validates
// every contained key record.
func (e *TemporaryExposureKeyExport) Validate() error {
	if e.BatchNum <= 0 {
		return NewError(KindFieldRange, "TEK-RANGE-001", "batch_num must be positive")
	}
	if e.BatchSize <= 0 {
		return NewError(KindFieldRange, "TEK-RANGE-002", "batch_size must be positive")
	}
	if e.BatchNum > e.BatchSize {
		return NewError(KindFieldRange, "TEK-RANGE-003", "batch_num exceeds batch_size")
	}
	if e.StartTimestamp > e.EndTimestamp {
		return NewError(KindFieldRange, "TEK-RANGE-004", "start_timestamp after end_timestamp")
	}
	for i := range e.Keys {
		if err := e.Keys[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TEKSignature pairs a SignatureInfo with raw signature bytes for one
// export file. BatchNum/BatchSize must match the paired export.
type TEKSignature struct {
	SignatureInfo SignatureInfo
	BatchNum      int32
	BatchSize     int32
	Signature     []byte

	unknown []byte
}

// TEKSignatureList is the detached signature artifact parallel to one
// export batch file.
type TEKSignatureList struct {
	Signatures []TEKSignature

	unknown []byte
}
