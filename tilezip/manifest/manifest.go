package manifest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
	"github.com/flaneur2020/tilezip/tilezip/logger"
	stor "github.com/flaneur2020/tilezip/tilezip/storage"
	"github.com/flaneur2020/tilezip/tilezip/ziputil"
)

const (
	// FileName is the manifest document published next to each issue's archive.
	FileName = "odw.json"

	// TilesType marks descriptors whose collection holds image tiles.
	TilesType = "tiles"

	maxManifestSize = 16 << 20
)

// Manifest lists the collections packed into an issue's archive.
type Manifest struct {
	ZipOffsets []Descriptor `json:"zip_offsets"`
}

// Descriptor places one collection inside the archive.
type Descriptor struct {
	Ident      string `json:"ident"`
	ZType      ZType  `json:"ztype"`
	CollOffset int64  `json:"coll_offset"`
	DirOffset  int64  `json:"dir_offset"`
	DirSize    int64  `json:"dir_size"`
}

// ZType is a descriptor's collection type. Manifests carry it either as a
// single string or as a list of strings.
type ZType []string

// UnmarshalJSON accepts a string or an array of strings.
func (z *ZType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*z = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*z = ZType{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("ztype must be a string or a list of strings: %w", err)
	}
	*z = list
	return nil
}

// Contains reports whether any type value contains s.
func (z ZType) Contains(s string) bool {
	for _, v := range z {
		if strings.Contains(v, s) {
			return true
		}
	}
	return false
}

// Find returns the first tiles descriptor whose ident contains pageIdent.
func (m *Manifest) Find(pageIdent string) (*Descriptor, bool) {
	for i := range m.ZipOffsets {
		d := &m.ZipOffsets[i]
		if strings.Contains(d.Ident, pageIdent) && d.ZType.Contains(TilesType) {
			return d, true
		}
	}
	return nil, false
}

// Loader maps an issue path to the archive location of its tile collection
// by reading the issue's manifest.
type Loader struct {
	storage stor.Storage
	baseURL string
}

// NewLoader creates a Loader that reads manifests below baseURL.
func NewLoader(storage stor.Storage, baseURL string) *Loader {
	return &Loader{
		storage: storage,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Target names the manifest to read for an issue and the ident to look for.
type Target struct {
	ManifestURL string
	ArchiveURL  string
	PageIdent   string
	Page        string
}

// TargetFor splits an issue path such as "1875_01_05/0003". The last part
// is the page; the remaining parts form the page ident, and the first part
// names the directory holding the manifest.
func (l *Loader) TargetFor(issue string) (*Target, error) {
	parts := strings.Split(strings.Trim(issue, "/"), "/")
	if len(parts) < 2 {
		return nil, tzerrors.NewLocationNotFoundError(issue)
	}

	page := parts[len(parts)-1]
	if page == "" || parts[0] == "" {
		return nil, tzerrors.NewLocationNotFoundError(issue)
	}

	manifestURL := l.baseURL + "/" + parts[0] + "/" + FileName
	return &Target{
		ManifestURL: manifestURL,
		ArchiveURL:  strings.TrimSuffix(manifestURL, ".json") + ".zip",
		PageIdent:   strings.Join(parts[:len(parts)-1], "/"),
		Page:        page,
	}, nil
}

// Fetch downloads and decodes a manifest.
func (l *Loader) Fetch(ctx context.Context, manifestURL string) (*Manifest, error) {
	rc, err := l.storage.Get(ctx, manifestURL)
	if err != nil {
		return nil, tzerrors.NewManifestFetchError(manifestURL, err)
	}
	defer rc.Close()

	var m Manifest
	if err := json.NewDecoder(io.LimitReader(rc, maxManifestSize)).Decode(&m); err != nil {
		return nil, tzerrors.NewManifestFetchError(manifestURL, fmt.Errorf("decode manifest: %w", err))
	}
	return &m, nil
}

// Locate returns the archive location of the tile collection for issue.
func (l *Loader) Locate(ctx context.Context, issue string) (ziputil.ArchiveLocation, error) {
	target, err := l.TargetFor(issue)
	if err != nil {
		return ziputil.ArchiveLocation{}, err
	}

	m, err := l.Fetch(ctx, target.ManifestURL)
	if err != nil {
		return ziputil.ArchiveLocation{}, err
	}

	d, ok := m.Find(target.PageIdent)
	if !ok {
		return ziputil.ArchiveLocation{}, tzerrors.ErrLocationNotFound.
			WithDetail("issue", issue).
			WithDetail("manifest", target.ManifestURL)
	}

	loc := ziputil.ArchiveLocation{
		ArchiveURL:       target.ArchiveURL,
		CollectionOffset: d.CollOffset,
		DirectoryOffset:  d.DirOffset,
		DirectorySize:    d.DirSize,
	}
	if err := loc.Validate(); err != nil {
		return ziputil.ArchiveLocation{}, err
	}

	logger.Debug("issue %s -> %s (ident %s)", issue, loc, d.Ident)
	return loc, nil
}
