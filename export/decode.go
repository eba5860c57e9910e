package export

import "google.golang.org/protobuf/encoding/protowire"

// Decode parses a binary export container into its value form.
//
// The 16-byte magic header must be present and exact. Field defaults
// (rolling_period = 144) are applied here. Unrecognized fields are
// preserved opaquely and survive a re-encode verbatim.
func Decode(data []byte) (*TemporaryExposureKeyExport, error) {
	if len(data) < HeaderSize {
		return nil, NewError(KindMalformedHeader, "TEK-HDR-001", "export shorter than header")
	}
	if string(data[:HeaderSize]) != Header {
		return nil, NewError(KindMalformedHeader, "TEK-HDR-002", "unrecognized export header or version")
	}
	e, err := decodeExport(data[HeaderSize:])
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeSignatureList parses a detached signature file.
func DecodeSignatureList(data []byte) (*TEKSignatureList, error) {
	l := &TEKSignatureList{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error {
		if num == 1 && typ == protowire.BytesType {
			s, err := decodeSignature(val)
			if err != nil {
				return err
			}
			l.Signatures = append(l.Signatures, *s)
			return nil
		}
		l.unknown = append(l.unknown, raw...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := range l.Signatures {
		s := &l.Signatures[i]
		if s.BatchNum <= 0 || s.BatchSize <= 0 || s.BatchNum > s.BatchSize {
			return nil, NewError(KindFieldRange, "TEK-RANGE-005", "signature batch numbering out of range")
		}
	}
	return l, nil
}

// walkFields drives a protobuf wire walk, handing each field to fn with
// both its decoded payload (val) and its verbatim wire bytes including
// the tag (raw). Length-delimited fields pass the inner bytes as val;
// scalar fields pass the value bytes.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return NewError(KindTruncatedMessage, "TEK-DEC-001", "malformed field tag")
		}
		rest := b[n:]
		var val []byte
		var m int
		switch typ {
		case protowire.VarintType:
			_, m = protowire.ConsumeVarint(rest)
			val = rest[:max(m, 0)]
		case protowire.Fixed64Type:
			_, m = protowire.ConsumeFixed64(rest)
			val = rest[:max(m, 0)]
		case protowire.Fixed32Type:
			_, m = protowire.ConsumeFixed32(rest)
			val = rest[:max(m, 0)]
		case protowire.BytesType:
			val, m = protowire.ConsumeBytes(rest)
		case protowire.StartGroupType:
			_, m = protowire.ConsumeGroup(num, rest)
			val = rest[:max(m, 0)]
		default:
			return NewError(KindTruncatedMessage, "TEK-DEC-002", "unsupported wire type")
		}
		if m < 0 {
			return NewError(KindTruncatedMessage, "TEK-DEC-003", "declared length exceeds available bytes")
		}
		if err := fn(num, typ, val, b[:n+m]); err != nil {
			return err
		}
		b = b[n+m:]
	}
	return nil
}

func varint32(val []byte) int32 {
	v, _ := protowire.ConsumeVarint(val)
	return int32(v)
}

func decodeExport(b []byte) (*TemporaryExposureKeyExport, error) {
	e := &TemporaryExposureKeyExport{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.Fixed64Type:
			e.StartTimestamp, _ = protowire.ConsumeFixed64(val)
		case num == 2 && typ == protowire.Fixed64Type:
			e.EndTimestamp, _ = protowire.ConsumeFixed64(val)
		case num == 3 && typ == protowire.BytesType:
			e.Region = string(val)
		case num == 4 && typ == protowire.VarintType:
			e.BatchNum = varint32(val)
		case num == 5 && typ == protowire.VarintType:
			e.BatchSize = varint32(val)
		case num == 6 && typ == protowire.BytesType:
			si, err := decodeSignatureInfo(val)
			if err != nil {
				return err
			}
			e.SignatureInfos = append(e.SignatureInfos, *si)
		case num == 7 && typ == protowire.BytesType:
			k, err := decodeKey(val)
			if err != nil {
				return err
			}
			e.Keys = append(e.Keys, *k)
		default:
			e.unknown = append(e.unknown, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

func decodeKey(b []byte) (*TemporaryExposureKey, error) {
	k := &TemporaryExposureKey{}
	sawPeriod := false
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			k.KeyData = append([]byte(nil), val...)
		case num == 2 && typ == protowire.VarintType:
			k.TransmissionRiskLevel = varint32(val)
		case num == 3 && typ == protowire.VarintType:
			k.RollingStartIntervalNumber = varint32(val)
		case num == 4 && typ == protowire.VarintType:
			k.RollingPeriod = varint32(val)
			sawPeriod = true
		default:
			k.unknown = append(k.unknown, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !sawPeriod {
		k.RollingPeriod = DefaultRollingPeriod
	}
	return k, nil
}

func decodeSignatureInfo(b []byte) (*SignatureInfo, error) {
	si := &SignatureInfo{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			si.AppBundleID = string(val)
		case num == 2 && typ == protowire.BytesType:
			si.AndroidPackage = string(val)
		case num == 3 && typ == protowire.BytesType:
			si.VerificationKeyVersion = string(val)
		case num == 4 && typ == protowire.BytesType:
			si.VerificationKeyID = string(val)
		case num == 5 && typ == protowire.BytesType:
			si.SignatureAlgorithm = string(val)
		default:
			si.unknown = append(si.unknown, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return si, nil
}

func decodeSignature(b []byte) (*TEKSignature, error) {
	s := &TEKSignature{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, val []byte, raw []byte) error {
		switch {
		case num == 1 && typ == protowire.BytesType:
			si, err := decodeSignatureInfo(val)
			if err != nil {
				return err
			}
			s.SignatureInfo = *si
		case num == 2 && typ == protowire.VarintType:
			s.BatchNum = varint32(val)
		case num == 3 && typ == protowire.VarintType:
			s.BatchSize = varint32(val)
		case num == 4 && typ == protowire.BytesType:
			s.Signature = append([]byte(nil), val...)
		default:
			s.unknown = append(s.unknown, raw...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}
