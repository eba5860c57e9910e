package export

import "google.golang.org/protobuf/encoding/protowire"

// Encode serializes an export into the binary container: the 16-byte
// magic header followed by the canonical message body. The output is
// deterministic; signatures are computed over exactly these bytes.
func Encode(e *TemporaryExposureKeyExport) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, 0, HeaderSize+64+len(e.Keys)*24)
	b = append(b, Header...)
	return appendExport(b, e), nil
}

// EncodeSignatureList serializes the detached signature artifact for
// one export file. No magic header is used.
func EncodeSignatureList(l *TEKSignatureList) ([]byte, error) {
	for i := range l.Signatures {
		s := &l.Signatures[i]
		if s.BatchNum <= 0 || s.BatchSize <= 0 || s.BatchNum > s.BatchSize {
			return nil, NewError(KindFieldRange, "TEK-RANGE-005", "signature batch numbering out of range")
		}
	}
	var b []byte
	for i := range l.Signatures {
		sub := appendSignature(nil, &l.Signatures[i])
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return append(b, l.unknown...), nil
}

func appendExport(b []byte, e *TemporaryExposureKeyExport) []byte {
	if e.StartTimestamp != 0 {
		b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, e.StartTimestamp)
	}
	if e.EndTimestamp != 0 {
		b = protowire.AppendTag(b, 2, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, e.EndTimestamp)
	}
	if e.Region != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, e.Region)
	}
	if e.BatchNum != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(e.BatchNum)))
	}
	if e.BatchSize != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(e.BatchSize)))
	}
	for i := range e.SignatureInfos {
		sub := appendSignatureInfo(nil, &e.SignatureInfos[i])
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	for i := range e.Keys {
		sub := appendKey(nil, &e.Keys[i])
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	return append(b, e.unknown...)
}

func appendKey(b []byte, k *TemporaryExposureKey) []byte {
	if len(k.KeyData) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, k.KeyData)
	}
	if k.TransmissionRiskLevel != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(k.TransmissionRiskLevel)))
	}
	if k.RollingStartIntervalNumber != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(k.RollingStartIntervalNumber)))
	}
	// The default period is omitted and re-applied at decode time.
	if k.RollingPeriod != DefaultRollingPeriod {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(k.RollingPeriod)))
	}
	return append(b, k.unknown...)
}

func appendSignatureInfo(b []byte, si *SignatureInfo) []byte {
	if si.AppBundleID != "" {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendString(b, si.AppBundleID)
	}
	if si.AndroidPackage != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, si.AndroidPackage)
	}
	if si.VerificationKeyVersion != "" {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendString(b, si.VerificationKeyVersion)
	}
	if si.VerificationKeyID != "" {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, si.VerificationKeyID)
	}
	if si.SignatureAlgorithm != "" {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, si.SignatureAlgorithm)
	}
	return append(b, si.unknown...)
}

func appendSignature(b []byte, s *TEKSignature) []byte {
	sub := appendSignatureInfo(nil, &s.SignatureInfo)
	if len(sub) > 0 {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, sub)
	}
	if s.BatchNum != 0 {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(s.BatchNum)))
	}
	if s.BatchSize != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(s.BatchSize)))
	}
	if len(s.Signature) > 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, s.Signature)
	}
	return append(b, s.unknown...)
}
