package ziputil

import (
	"fmt"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
)

// LocalFileHeaderLen is the fixed length of a local file header, before its
// variable name and extra fields.
const LocalFileHeaderLen = 30

// ArchiveLocation identifies one collection's central directory inside a
// remote resource that may hold several collections back to back. Every
// offset is relative to the start of the remote resource except entry
// offsets inside the directory, which are relative to CollectionOffset.
type ArchiveLocation struct {
	ArchiveURL       string
	CollectionOffset int64
	DirectoryOffset  int64
	DirectorySize    int64
}

// Validate checks that the location can be used for a resolution.
func (l ArchiveLocation) Validate() error {
	if l.ArchiveURL == "" {
		return tzerrors.ErrInvalidLocation.WithMessage("archive url is empty")
	}
	if l.CollectionOffset < 0 || l.DirectoryOffset < 0 || l.DirectorySize < 0 {
		return tzerrors.ErrInvalidLocation.
			WithDetail("collectionOffset", l.CollectionOffset).
			WithDetail("directoryOffset", l.DirectoryOffset).
			WithDetail("directorySize", l.DirectorySize)
	}
	return nil
}

// DirectoryRange returns the inclusive byte range of the central directory.
func (l ArchiveLocation) DirectoryRange() (start, end int64) {
	return l.DirectoryOffset, l.DirectoryOffset + l.DirectorySize - 1
}

func (l ArchiveLocation) String() string {
	return fmt.Sprintf("%s (collection@%d, directory@%d+%d)", l.ArchiveURL, l.CollectionOffset, l.DirectoryOffset, l.DirectorySize)
}

// ResolvedObject is the absolute byte span of an entry's payload.
type ResolvedObject struct {
	AbsoluteOffset int64
	Size           int64
}

// End returns the inclusive last byte of the object.
func (o ResolvedObject) End() int64 {
	return o.AbsoluteOffset + o.Size - 1
}

// Resolve computes the absolute payload span of entry inside the remote
// resource described by loc.
//
// The local header is assumed to carry the same extra field as the central
// directory record and no comment, so the central directory lengths stand in
// for the local ones. Archives produced for this service are written that
// way; reading the real local header would break compatibility with them.
func Resolve(entry *DirectoryEntry, loc ArchiveLocation) (*ResolvedObject, error) {
	offset := int64(entry.RelativeOffsetOfLocalHeader) +
		loc.CollectionOffset +
		LocalFileHeaderLen +
		int64(entry.FileNameLength) +
		int64(entry.ExtraFieldLength) +
		int64(entry.CommentLength)
	size := int64(entry.CompressedSize)

	if offset < 0 || size <= 0 {
		return nil, tzerrors.NewInvalidResolutionError(offset, size)
	}
	return &ResolvedObject{AbsoluteOffset: offset, Size: size}, nil
}
