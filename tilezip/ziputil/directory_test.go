package ziputil_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
	"github.com/flaneur2020/tilezip/tilezip/ziputil"
	"github.com/flaneur2020/tilezip/tilezip/ziputil/ziptest"
)

func TestLocateEntry_SingleRecord(t *testing.T) {
	dir := ziptest.Directory(ziptest.Record{
		Name:           "page1/tiles/0_0.jpg",
		RelativeOffset: 1000,
		CompressedSize: 4096,
	})

	entry, err := ziputil.LocateEntry(dir, "0_0.jpg")
	if err != nil {
		t.Fatalf("LocateEntry() error = %v", err)
	}

	if entry.FileName != "page1/tiles/0_0.jpg" {
		t.Errorf("FileName = %q", entry.FileName)
	}
	if entry.FileNameLength != 19 {
		t.Errorf("FileNameLength = %d, want 19", entry.FileNameLength)
	}
	if entry.RelativeOffsetOfLocalHeader != 1000 {
		t.Errorf("RelativeOffsetOfLocalHeader = %d, want 1000", entry.RelativeOffsetOfLocalHeader)
	}
	if entry.CompressedSize != 4096 {
		t.Errorf("CompressedSize = %d, want 4096", entry.CompressedSize)
	}
}

func TestLocateEntry_VariableLengthRecords(t *testing.T) {
	records := []ziptest.Record{
		{Name: "info.json", RelativeOffset: 0, CompressedSize: 10},
		{Name: "0003/tiles/0_0.jpg", RelativeOffset: 100, CompressedSize: 20, Extra: bytes.Repeat([]byte{1}, 9)},
		{Name: "0003/tiles/0_1.jpg", RelativeOffset: 200, CompressedSize: 30, Comment: []byte("a comment")},
		{Name: "0003/tiles/1_0.jpg", RelativeOffset: 300, CompressedSize: 40, Extra: []byte{1, 2, 3, 4}, Comment: []byte("c")},
		{Name: "0003/tiles/1_1.jpg", RelativeOffset: 400, CompressedSize: 50},
	}
	dir := ziptest.Directory(records...)

	for _, rec := range records {
		t.Run(rec.Name, func(t *testing.T) {
			entry, err := ziputil.LocateEntry(dir, rec.Name)
			if err != nil {
				t.Fatalf("LocateEntry() error = %v", err)
			}
			if entry.RelativeOffsetOfLocalHeader != rec.RelativeOffset {
				t.Errorf("RelativeOffsetOfLocalHeader = %d, want %d", entry.RelativeOffsetOfLocalHeader, rec.RelativeOffset)
			}
			if entry.CompressedSize != rec.CompressedSize {
				t.Errorf("CompressedSize = %d, want %d", entry.CompressedSize, rec.CompressedSize)
			}
			if int(entry.ExtraFieldLength) != len(rec.Extra) || int(entry.CommentLength) != len(rec.Comment) {
				t.Errorf("extra/comment = %d/%d, want %d/%d", entry.ExtraFieldLength, entry.CommentLength, len(rec.Extra), len(rec.Comment))
			}
		})
	}
}

func TestLocateEntry_FirstSubstringMatchWins(t *testing.T) {
	dir := ziptest.Directory(
		ziptest.Record{Name: "0003/tiles/10_0.jpg", RelativeOffset: 1, CompressedSize: 1},
		ziptest.Record{Name: "0003/tiles/0_0.jpg", RelativeOffset: 2, CompressedSize: 1},
	)

	// "0_0.jpg" is a substring of "10_0.jpg", which comes first.
	entry, err := ziputil.LocateEntry(dir, "0_0.jpg")
	if err != nil {
		t.Fatalf("LocateEntry() error = %v", err)
	}
	if entry.FileName != "0003/tiles/10_0.jpg" {
		t.Fatalf("FileName = %q, want the first substring match", entry.FileName)
	}
}

func TestLocateEntry_NotFound(t *testing.T) {
	dir := ziptest.Directory(
		ziptest.Record{Name: "0003/tiles/0_0.jpg", CompressedSize: 1},
		ziptest.Record{Name: "0003/tiles/0_1.jpg", CompressedSize: 1},
	)

	_, err := ziputil.LocateEntry(dir, "9_9.jpg")
	if !errors.Is(err, tzerrors.ErrEntryNotFound) {
		t.Fatalf("LocateEntry() error = %v, want ENTRY_NOT_FOUND", err)
	}
}

func TestLocateEntry_ShortBuffers(t *testing.T) {
	for _, n := range []int{0, 1, 31, 32, 45} {
		t.Run(fmt.Sprintf("%d bytes", n), func(t *testing.T) {
			dir := bytes.Repeat([]byte{0xff}, n)
			_, err := ziputil.LocateEntry(dir, "0_0.jpg")
			if !errors.Is(err, tzerrors.ErrEntryNotFound) {
				t.Fatalf("LocateEntry() error = %v, want ENTRY_NOT_FOUND", err)
			}
		})
	}
}

func TestLocateEntry_TruncatedTrailingRecord(t *testing.T) {
	full := ziptest.Directory(
		ziptest.Record{Name: "0003/tiles/0_0.jpg", CompressedSize: 1},
		ziptest.Record{Name: "0003/tiles/0_1.jpg", CompressedSize: 1},
	)
	first := len(ziptest.Record{Name: "0003/tiles/0_0.jpg"}.Bytes())

	// Cut the second record inside its fixed header.
	truncated := full[:first+40]
	_, err := ziputil.LocateEntry(truncated, "0_1.jpg")
	if !errors.Is(err, tzerrors.ErrEntryNotFound) {
		t.Fatalf("LocateEntry() error = %v, want ENTRY_NOT_FOUND", err)
	}

	// Entries before the cut are still found.
	if _, err := ziputil.LocateEntry(truncated, "0_0.jpg"); err != nil {
		t.Fatalf("LocateEntry() error = %v", err)
	}
}

func TestLocateEntry_NameRunsPastBuffer(t *testing.T) {
	rec := ziptest.Record{Name: "0003/tiles/0_0.jpg", CompressedSize: 1}.Bytes()

	_, err := ziputil.LocateEntry(rec[:len(rec)-3], "0_0.jpg")
	if !errors.Is(err, tzerrors.ErrOutOfBounds) {
		t.Fatalf("LocateEntry() error = %v, want OUT_OF_BOUNDS", err)
	}
}

func TestWalkEntries_VisitsEveryRecordOnce(t *testing.T) {
	const n = 500
	records := make([]ziptest.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, ziptest.Record{
			Name:           fmt.Sprintf("0003/tiles/%d_%d.jpg", i/20, i%20),
			RelativeOffset: uint32(i * 100),
			CompressedSize: uint32(i + 1),
			Extra:          bytes.Repeat([]byte{0}, i%7),
			Comment:        bytes.Repeat([]byte{'c'}, i%3),
		})
	}
	dir := ziptest.Directory(records...)

	visited := 0
	err := ziputil.WalkEntries(dir, func(entry *ziputil.DirectoryEntry) bool {
		want := records[visited]
		if entry.FileName != want.Name || entry.RelativeOffsetOfLocalHeader != want.RelativeOffset {
			t.Fatalf("entry %d = %q@%d, want %q@%d", visited, entry.FileName, entry.RelativeOffsetOfLocalHeader, want.Name, want.RelativeOffset)
		}
		visited++
		return true
	})
	if err != nil {
		t.Fatalf("WalkEntries() error = %v", err)
	}
	if visited != n {
		t.Fatalf("visited %d entries, want %d", visited, n)
	}
}

func TestWalkEntries_StopsEarly(t *testing.T) {
	dir := ziptest.Directory(
		ziptest.Record{Name: "a"},
		ziptest.Record{Name: "b"},
		ziptest.Record{Name: "c"},
	)

	var names []string
	err := ziputil.WalkEntries(dir, func(entry *ziputil.DirectoryEntry) bool {
		names = append(names, entry.FileName)
		return entry.FileName != "b"
	})
	if err != nil {
		t.Fatalf("WalkEntries() error = %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("visited %v, want [a b]", names)
	}
}

func TestLocateEntry_RealArchive(t *testing.T) {
	archive, err := ziptest.BuildArchive([]ziptest.File{
		{Name: "0003/tiles/info.json", Data: []byte(`{"width":1024}`)},
		{Name: "0003/tiles/0_0.jpg", Data: []byte("tile zero zero")},
	})
	if err != nil {
		t.Fatalf("BuildArchive() error = %v", err)
	}

	entry, err := ziputil.LocateEntry(archive.Directory(), "0_0.jpg")
	if err != nil {
		t.Fatalf("LocateEntry() error = %v", err)
	}
	if entry.FileName != "0003/tiles/0_0.jpg" {
		t.Fatalf("FileName = %q", entry.FileName)
	}
	if entry.CompressedSize != uint32(len("tile zero zero")) {
		t.Fatalf("CompressedSize = %d", entry.CompressedSize)
	}
}
