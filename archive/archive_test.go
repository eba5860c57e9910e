package archive

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestWriteRead_RoundTrip(t *testing.T) {
	a := &Archive{
		ExportBytes:    []byte("EK Export v1    body"),
		SignatureBytes: []byte{0x0a, 0x02, 0x10, 0x01},
	}
	data, err := Write(a)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got.ExportBytes, a.ExportBytes) || !bytes.Equal(got.SignatureBytes, a.SignatureBytes) {
		t.Fatalf("round trip mismatch")
	}
}

func TestWrite_Deterministic(t *testing.T) {
	a := &Archive{ExportBytes: []byte("e"), SignatureBytes: []byte("s")}
	x, err := Write(a)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	y, err := Write(a)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !bytes.Equal(x, y) {
		t.Fatalf("two writes of the same pair differ")
	}
	if CID(x) != CID(y) {
		t.Fatalf("content identifiers differ")
	}
}

func TestRead_MissingMember(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(ExportName)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("only export")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Read(buf.Bytes()); err == nil {
		t.Fatalf("expected error for missing %s", SignatureName)
	}
}

func TestRead_IgnoresExtraMembers(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range []struct {
		name    string
		content string
	}{
		{ExportName, "export"},
		{SignatureName, "sig"},
		{"index.json", "{}"},
	} {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if _, err := w.Write([]byte(m.content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	a, err := Read(buf.Bytes())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(a.ExportBytes) != "export" || string(a.SignatureBytes) != "sig" {
		t.Fatalf("unexpected members: %+v", a)
	}
}

func TestRead_NotAZip(t *testing.T) {
	if _, err := Read([]byte("not a zip")); err == nil {
		t.Fatalf("expected error")
	}
}
