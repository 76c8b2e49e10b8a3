package ziputil

import (
	"strings"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
)

// Central directory file header layout. Offsets are relative to the start
// of each record.
const (
	CentralDirectoryHeaderLen = 46 // fixed part; the file name starts here
	CompressedSizePos         = 20
	FileNameLenPos            = 28
	ExtraFieldLenPos          = 30
	FileCommentLenPos         = 32
	RelativeOffsetPos         = 42

	// minRecordRemaining is the fewest bytes that must remain at the cursor
	// for the scan to continue. A shorter trailing fragment cannot hold the
	// fixed fields and is treated as truncation.
	minRecordRemaining = CentralDirectoryHeaderLen
)

// DirectoryEntry holds the fields read from one central directory record.
type DirectoryEntry struct {
	FileNameLength              uint16
	ExtraFieldLength            uint16
	CommentLength               uint16
	CompressedSize              uint32
	RelativeOffsetOfLocalHeader uint32
	FileName                    string
}

// RecordLen is the total length of the entry's record in the central directory.
func (e *DirectoryEntry) RecordLen() int {
	return CentralDirectoryHeaderLen + int(e.FileNameLength) + int(e.ExtraFieldLength) + int(e.CommentLength)
}

// WalkEntries scans dir record by record and calls fn for each entry in
// order until fn returns false. A trailing fragment shorter than
// minRecordRemaining ends the walk silently. Any other read that would run
// past the end of dir returns an OUT_OF_BOUNDS error.
func WalkEntries(dir []byte, fn func(entry *DirectoryEntry) bool) error {
	p := 0
	for p < len(dir) && len(dir)-p >= minRecordRemaining {
		entry, err := readEntry(dir, p)
		if err != nil {
			return err
		}
		if !fn(entry) {
			return nil
		}
		p += entry.RecordLen()
	}
	return nil
}

// LocateEntry returns the first entry, in directory order, whose file name
// contains identifier. Matching is by substring, not equality.
func LocateEntry(dir []byte, identifier string) (*DirectoryEntry, error) {
	var found *DirectoryEntry
	err := WalkEntries(dir, func(entry *DirectoryEntry) bool {
		if strings.Contains(entry.FileName, identifier) {
			found = entry
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, tzerrors.NewEntryNotFoundError(identifier)
	}
	return found, nil
}

func readEntry(dir []byte, p int) (*DirectoryEntry, error) {
	var (
		entry DirectoryEntry
		err   error
	)
	if entry.CompressedSize, err = ReadU32(dir, p+CompressedSizePos); err != nil {
		return nil, err
	}
	if entry.FileNameLength, err = ReadU16(dir, p+FileNameLenPos); err != nil {
		return nil, err
	}
	if entry.ExtraFieldLength, err = ReadU16(dir, p+ExtraFieldLenPos); err != nil {
		return nil, err
	}
	if entry.CommentLength, err = ReadU16(dir, p+FileCommentLenPos); err != nil {
		return nil, err
	}
	if entry.RelativeOffsetOfLocalHeader, err = ReadU32(dir, p+RelativeOffsetPos); err != nil {
		return nil, err
	}

	name, err := ReadBytes(dir, p+CentralDirectoryHeaderLen, int(entry.FileNameLength))
	if err != nil {
		return nil, err
	}
	entry.FileName = string(name)
	return &entry, nil
}
