package tilezip

import (
	"context"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
	"github.com/flaneur2020/tilezip/tilezip/logger"
	stor "github.com/flaneur2020/tilezip/tilezip/storage"
	"github.com/flaneur2020/tilezip/tilezip/ziputil"
)

// Resolver turns an archive location and an entry identifier into the
// entry's payload bytes.
type Resolver interface {
	// Locate fetches the central directory and resolves the entry without
	// fetching its payload.
	Locate(ctx context.Context, loc ziputil.ArchiveLocation, identifier string) (*Resolution, error)

	// ResolveAndFetch locates the entry and fetches exactly its payload.
	ResolveAndFetch(ctx context.Context, loc ziputil.ArchiveLocation, identifier string) ([]byte, error)

	// ListEntries returns every record of the central directory in order.
	ListEntries(ctx context.Context, loc ziputil.ArchiveLocation) ([]ziputil.DirectoryEntry, error)
}

// Resolution is the outcome of Locate.
type Resolution struct {
	Location ziputil.ArchiveLocation
	Entry    *ziputil.DirectoryEntry
	Object   *ziputil.ResolvedObject
}

type resolver struct {
	fetcher *RangeFetcher
}

// NewResolver creates a Resolver reading through storage. Each call runs its
// fetches one after another; nothing is cached between calls.
func NewResolver(storage stor.Storage) Resolver {
	return &resolver{fetcher: NewRangeFetcher(storage)}
}

func (r *resolver) Locate(ctx context.Context, loc ziputil.ArchiveLocation, identifier string) (*Resolution, error) {
	dir, err := r.fetchDirectory(ctx, loc)
	if err != nil {
		return nil, err
	}
	if dir == nil {
		return nil, tzerrors.NewEntryNotFoundError(identifier)
	}

	entry, err := ziputil.LocateEntry(dir, identifier)
	if err != nil {
		return nil, err
	}

	obj, err := ziputil.Resolve(entry, loc)
	if err != nil {
		return nil, err
	}

	logger.Debug("%s in %s -> %s bytes [%d, %d]", identifier, loc.ArchiveURL, entry.FileName, obj.AbsoluteOffset, obj.End())
	return &Resolution{Location: loc, Entry: entry, Object: obj}, nil
}

func (r *resolver) ResolveAndFetch(ctx context.Context, loc ziputil.ArchiveLocation, identifier string) ([]byte, error) {
	res, err := r.Locate(ctx, loc, identifier)
	if err != nil {
		return nil, err
	}
	return r.fetcher.FetchRange(ctx, loc.ArchiveURL, res.Object.AbsoluteOffset, res.Object.End())
}

func (r *resolver) ListEntries(ctx context.Context, loc ziputil.ArchiveLocation) ([]ziputil.DirectoryEntry, error) {
	dir, err := r.fetchDirectory(ctx, loc)
	if err != nil {
		return nil, err
	}

	var entries []ziputil.DirectoryEntry
	err = ziputil.WalkEntries(dir, func(entry *ziputil.DirectoryEntry) bool {
		entries = append(entries, *entry)
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// fetchDirectory returns nil without a request when the directory is empty.
func (r *resolver) fetchDirectory(ctx context.Context, loc ziputil.ArchiveLocation) ([]byte, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if loc.DirectorySize == 0 {
		return nil, nil
	}

	start, end := loc.DirectoryRange()
	return r.fetcher.FetchRange(ctx, loc.ArchiveURL, start, end)
}
