package storage

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestMockStorage_ReadRange(t *testing.T) {
	m := NewMockStorage()
	m.AddObject("mem://a.zip", []byte("0123456789"))

	rc, err := m.ReadRange(context.Background(), "mem://a.zip", 3, 4)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	got, _ := io.ReadAll(rc)
	if string(got) != "3456" {
		t.Fatalf("ReadRange() = %q, want 3456", got)
	}

	// Past the end is cut short.
	rc, err = m.ReadRange(context.Background(), "mem://a.zip", 8, 10)
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	got, _ = io.ReadAll(rc)
	if string(got) != "89" {
		t.Fatalf("ReadRange() = %q, want 89", got)
	}

	if _, err := m.ReadRange(context.Background(), "mem://a.zip", 10, 1); err == nil {
		t.Fatal("ReadRange() expected error at end of object")
	}
	if _, err := m.ReadRange(context.Background(), "mem://missing.zip", 0, 1); err == nil {
		t.Fatal("ReadRange() expected error for missing object")
	}

	reqs := m.Requests()
	if len(reqs) != 4 {
		t.Fatalf("Requests() len = %d, want 4", len(reqs))
	}
	if reqs[0] != (RangeRequest{URL: "mem://a.zip", Offset: 3, Length: 4}) || reqs[0].End() != 6 {
		t.Fatalf("Requests()[0] = %+v", reqs[0])
	}
}

func TestMockStorage_FailURL(t *testing.T) {
	m := NewMockStorage()
	m.AddObject("mem://a.zip", []byte("data"))
	boom := errors.New("boom")
	m.FailURL("mem://a.zip", boom)

	if _, err := m.ReadRange(context.Background(), "mem://a.zip", 0, 1); !errors.Is(err, boom) {
		t.Fatalf("ReadRange() error = %v, want boom", err)
	}
	if _, err := m.Get(context.Background(), "mem://a.zip"); !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want boom", err)
	}
}
