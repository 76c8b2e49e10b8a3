package tilezip

import (
	"context"
	"fmt"
	"io"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
	stor "github.com/flaneur2020/tilezip/tilezip/storage"
)

// RangeFetcher reads exact inclusive byte ranges of a remote resource.
type RangeFetcher struct {
	storage stor.Storage
}

// NewRangeFetcher creates a RangeFetcher on top of storage.
func NewRangeFetcher(storage stor.Storage) *RangeFetcher {
	return &RangeFetcher{storage: storage}
}

// FetchRange returns bytes [start, end] of url. The result is exactly
// end-start+1 bytes or the call fails with FETCH_FAILED.
func (f *RangeFetcher) FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, tzerrors.NewFetchError(url, start, end, fmt.Errorf("invalid range"))
	}
	length := end - start + 1

	rc, err := f.storage.ReadRange(ctx, url, start, length)
	if err != nil {
		return nil, tzerrors.NewFetchError(url, start, end, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, length+1))
	if err != nil {
		return nil, tzerrors.NewFetchError(url, start, end, err)
	}
	if int64(len(data)) != length {
		return nil, tzerrors.NewFetchError(url, start, end,
			fmt.Errorf("body length mismatch: got %d bytes, want %d", len(data), length))
	}
	return data, nil
}
