package export

import (
	"bytes"
	"testing"
)

func TestNewTemporaryExposureKey_RejectsBadLength(t *testing.T) {
	_, err := NewTemporaryExposureKey([]byte("short"), 0, 2650320, 144)
	if !IsKind(err, KindInvalidKeyRecord) {
		t.Fatalf("expected InvalidKeyRecord, got %v", err)
	}
}

func TestNewTemporaryExposureKey_RejectsNegativePeriod(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, KeyLength)
	_, err := NewTemporaryExposureKey(data, 0, 2650320, -1)
	if !IsKind(err, KindInvalidKeyRecord) {
		t.Fatalf("expected InvalidKeyRecord, got %v", err)
	}
}

func TestNewTemporaryExposureKey_RejectsZeroPeriod(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, KeyLength)
	_, err := NewTemporaryExposureKey(data, 0, 2650320, 0)
	if !IsKind(err, KindInvalidKeyRecord) {
		t.Fatalf("expected InvalidKeyRecord, got %v", err)
	}
}

func TestExportValidate_WindowOrder(t *testing.T) {
	e := &TemporaryExposureKeyExport{
		StartTimestamp: 20,
		EndTimestamp:   10,
		BatchNum:       1,
		BatchSize:      1,
	}
	if err := e.Validate(); !IsKind(err, KindFieldRange) {
		t.Fatalf("expected FieldRange, got %v", err)
	}
}

func TestExportValidate_RejectsBadKey(t *testing.T) {
	e := &TemporaryExposureKeyExport{
		BatchNum:  1,
		BatchSize: 1,
		Keys:      []TemporaryExposureKey{{KeyData: []byte("nope"), RollingPeriod: 144}},
	}
	if err := e.Validate(); !IsKind(err, KindInvalidKeyRecord) {
		t.Fatalf("expected InvalidKeyRecord, got %v", err)
	}
}
