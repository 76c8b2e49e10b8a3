package tilezip

import (
	"context"
	"strings"

	"github.com/flaneur2020/tilezip/tilezip/manifest"
	"github.com/flaneur2020/tilezip/tilezip/ziputil"
	"github.com/opencontainers/go-digest"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeJPEG = "image/jpeg"
)

// ContentType classifies an entry identifier: metadata documents are JSON,
// everything else is served as a JPEG tile.
func ContentType(identifier string) string {
	if strings.Contains(identifier, ".json") {
		return ContentTypeJSON
	}
	return ContentTypeJPEG
}

// Locator maps an issue path to the archive location of its tiles.
type Locator interface {
	Locate(ctx context.Context, issue string) (ziputil.ArchiveLocation, error)
}

var _ Locator = (*manifest.Loader)(nil)

// TileRef is a resolved tile whose payload has not been fetched yet.
type TileRef struct {
	Path        string
	Issue       string
	Identifier  string
	ContentType string
	Resolution  *Resolution
}

// Size returns the payload size in bytes.
func (r *TileRef) Size() int64 {
	return r.Resolution.Object.Size
}

// Tile is a fetched tile or metadata document.
type Tile struct {
	Path        string
	Identifier  string
	ContentType string
	Data        []byte
	Digest      digest.Digest
}

// TileAccessor serves tile request paths such as
// "1875_01_05/0003/1/tiles/0_0.jpg".
type TileAccessor interface {
	// Resolve locates the entry behind path without fetching its payload.
	Resolve(ctx context.Context, path string) (*TileRef, error)
	// Read fetches the payload of a resolved tile.
	Read(ctx context.Context, ref *TileRef) (*Tile, error)
	// Open resolves and reads path.
	Open(ctx context.Context, path string) (*Tile, error)
	// List returns the tile archive location of an issue and its entries.
	List(ctx context.Context, issue string) (ziputil.ArchiveLocation, []ziputil.DirectoryEntry, error)
}

type tileAccessor struct {
	locator  Locator
	resolver Resolver
	fetcher  *RangeFetcher
}

// NewTileAccessor wires a Locator and a Resolver together. fetcher reads
// payloads of refs returned by Resolve.
func NewTileAccessor(locator Locator, resolver Resolver, fetcher *RangeFetcher) TileAccessor {
	return &tileAccessor{
		locator:  locator,
		resolver: resolver,
		fetcher:  fetcher,
	}
}

func (a *tileAccessor) Resolve(ctx context.Context, path string) (*TileRef, error) {
	issue, identifier, err := manifest.SplitPath(path)
	if err != nil {
		return nil, err
	}

	loc, err := a.locator.Locate(ctx, issue)
	if err != nil {
		return nil, err
	}

	res, err := a.resolver.Locate(ctx, loc, identifier)
	if err != nil {
		return nil, err
	}

	return &TileRef{
		Path:        path,
		Issue:       issue,
		Identifier:  identifier,
		ContentType: ContentType(identifier),
		Resolution:  res,
	}, nil
}

func (a *tileAccessor) Read(ctx context.Context, ref *TileRef) (*Tile, error) {
	obj := ref.Resolution.Object
	data, err := a.fetcher.FetchRange(ctx, ref.Resolution.Location.ArchiveURL, obj.AbsoluteOffset, obj.End())
	if err != nil {
		return nil, err
	}

	return &Tile{
		Path:        ref.Path,
		Identifier:  ref.Identifier,
		ContentType: ref.ContentType,
		Data:        data,
		Digest:      digest.FromBytes(data),
	}, nil
}

func (a *tileAccessor) Open(ctx context.Context, path string) (*Tile, error) {
	ref, err := a.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}
	return a.Read(ctx, ref)
}

func (a *tileAccessor) List(ctx context.Context, issue string) (ziputil.ArchiveLocation, []ziputil.DirectoryEntry, error) {
	loc, err := a.locator.Locate(ctx, issue)
	if err != nil {
		return ziputil.ArchiveLocation{}, nil, err
	}

	entries, err := a.resolver.ListEntries(ctx, loc)
	if err != nil {
		return ziputil.ArchiveLocation{}, nil, err
	}
	return loc, entries, nil
}
