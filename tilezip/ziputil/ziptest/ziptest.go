// Package ziptest builds stored ZIP archives and raw central directory
// records for tests.
package ziptest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/flaneur2020/tilezip/tilezip/ziputil"
)

const (
	eocdLen       = 22
	eocdSignature = 0x06054b50
	cdSignature   = 0x02014b50
)

// File is one entry to store in a test archive.
type File struct {
	Name string
	Data []byte
}

// Archive is an uncompressed ZIP archive along with where its central
// directory lives.
type Archive struct {
	Bytes           []byte
	DirectoryOffset int64
	DirectorySize   int64
}

// Directory returns the raw central directory bytes.
func (a *Archive) Directory() []byte {
	return a.Bytes[a.DirectoryOffset : a.DirectoryOffset+a.DirectorySize]
}

// BuildArchive writes files with the Store method and no modification time,
// so neither header carries an extra field.
func BuildArchive(files []File) (*Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Store})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	data := buf.Bytes()
	eocdPos := len(data) - eocdLen
	sig, err := ziputil.ReadU32(data, eocdPos)
	if err != nil {
		return nil, err
	}
	if sig != eocdSignature {
		return nil, fmt.Errorf("end of central directory not found")
	}
	size, err := ziputil.ReadU32(data, eocdPos+12)
	if err != nil {
		return nil, err
	}
	offset, err := ziputil.ReadU32(data, eocdPos+16)
	if err != nil {
		return nil, err
	}

	return &Archive{
		Bytes:           data,
		DirectoryOffset: int64(offset),
		DirectorySize:   int64(size),
	}, nil
}

// Collection is one archive placed inside a packed resource.
type Collection struct {
	Archive          *Archive
	CollectionOffset int64
}

// Location returns the archive location of the collection inside a packed
// resource served at url.
func (c Collection) Location(url string) ziputil.ArchiveLocation {
	return ziputil.ArchiveLocation{
		ArchiveURL:       url,
		CollectionOffset: c.CollectionOffset,
		DirectoryOffset:  c.CollectionOffset + c.Archive.DirectoryOffset,
		DirectorySize:    c.Archive.DirectorySize,
	}
}

// Pack concatenates archives into one resource, after a leading pad of
// filler bytes, and reports where each archive begins.
func Pack(pad int, archives ...*Archive) ([]byte, []Collection) {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0xAA}, pad))

	collections := make([]Collection, 0, len(archives))
	for _, a := range archives {
		collections = append(collections, Collection{Archive: a, CollectionOffset: int64(buf.Len())})
		buf.Write(a.Bytes)
	}
	return buf.Bytes(), collections
}

// Record is a synthetic central directory record.
type Record struct {
	Name           string
	RelativeOffset uint32
	CompressedSize uint32
	Extra          []byte
	Comment        []byte
}

// Bytes encodes the record in central directory layout.
func (r Record) Bytes() []byte {
	b := make([]byte, ziputil.CentralDirectoryHeaderLen, ziputil.CentralDirectoryHeaderLen+len(r.Name)+len(r.Extra)+len(r.Comment))
	binary.LittleEndian.PutUint32(b[0:], cdSignature)
	binary.LittleEndian.PutUint32(b[ziputil.CompressedSizePos:], r.CompressedSize)
	binary.LittleEndian.PutUint32(b[24:], r.CompressedSize) // uncompressed size
	binary.LittleEndian.PutUint16(b[ziputil.FileNameLenPos:], uint16(len(r.Name)))
	binary.LittleEndian.PutUint16(b[ziputil.ExtraFieldLenPos:], uint16(len(r.Extra)))
	binary.LittleEndian.PutUint16(b[ziputil.FileCommentLenPos:], uint16(len(r.Comment)))
	binary.LittleEndian.PutUint32(b[ziputil.RelativeOffsetPos:], r.RelativeOffset)
	b = append(b, r.Name...)
	b = append(b, r.Extra...)
	b = append(b, r.Comment...)
	return b
}

// Directory concatenates records into a central directory.
func Directory(records ...Record) []byte {
	var buf bytes.Buffer
	for _, r := range records {
		buf.Write(r.Bytes())
	}
	return buf.Bytes()
}
