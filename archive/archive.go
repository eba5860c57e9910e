// Package archive reads and writes the zip container that published
// export batches ship in: one export.bin and one export.sig per
// archive.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/coronarchive/tekexport/cidutil"
)

const (
	// ExportName is the archive member holding the export container.
	ExportName = "export.bin"

	// SignatureName is the archive member holding the detached
	// signature list.
	SignatureName = "export.sig"
)

// Archive is one extracted export/signature file pair.
type Archive struct {
	ExportBytes    []byte
	SignatureBytes []byte
}

// Read extracts the export/signature pair from zip archive bytes.
// Both members must be present; archives may carry additional members,
// which are ignored.
func Read(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	a := &Archive{}
	for _, f := range zr.File {
		switch f.Name {
		case ExportName:
			a.ExportBytes, err = readMember(f)
		case SignatureName:
			a.SignatureBytes, err = readMember(f)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	if a.ExportBytes == nil {
		return nil, fmt.Errorf("archive: missing %s", ExportName)
	}
	if a.SignatureBytes == nil {
		return nil, fmt.Errorf("archive: missing %s", SignatureName)
	}
	return a, nil
}

// Write produces a deterministic zip archive for the pair: fixed member
// order, normalized timestamps and attributes. Two writes of the same
// pair are byte-identical.
func Write(a *Archive) ([]byte, error) {
	if a == nil || a.ExportBytes == nil || a.SignatureBytes == nil {
		return nil, fmt.Errorf("archive: both %s and %s are required", ExportName, SignatureName)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeMember(zw, ExportName, a.ExportBytes); err != nil {
		return nil, err
	}
	if err := writeMember(zw, SignatureName, a.SignatureBytes); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CID returns the content identifier of raw archive bytes, used to
// recognize an already-archived snapshot.
func CID(data []byte) string {
	return cidutil.CIDv1RawSHA256(data)
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", f.Name, err)
	}
	return b, nil
}

func writeMember(zw *zip.Writer, name string, content []byte) error {
	// Store uncompressed with a zeroed header so output is reproducible.
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}
