package tilezip

import (
	"bytes"
	"fmt"
	"testing"

	stor "github.com/flaneur2020/tilezip/tilezip/storage"
	"github.com/flaneur2020/tilezip/tilezip/ziputil/ziptest"
)

const (
	testBaseURL    = "mem://files/AECHO/1875_01"
	testArchiveURL = testBaseURL + "/1875_01_05/odw.zip"
)

// issueFixture is a packed archive holding two page collections of one issue,
// published with its manifest in a MockStorage. Request paths look like
// "1875_01_05/0001/1/tiles/0_0.jpg": the segment before /tiles/ is the page
// and the rest selects the collection.
type issueFixture struct {
	storage  *stor.MockStorage
	resource []byte
	pages    map[string]map[string][]byte
}

func newIssueFixture(t *testing.T) *issueFixture {
	t.Helper()

	pages := map[string]map[string][]byte{
		"0001": {
			"info.json": []byte(`{"width":2048,"height":3072}`),
			"0_0.jpg":   bytes.Repeat([]byte{0xff, 0xd8, 0x01}, 200),
			"0_1.jpg":   bytes.Repeat([]byte{0xff, 0xd8, 0x02}, 150),
		},
		"0002": {
			"info.json": []byte(`{"width":1024,"height":1536}`),
			"0_0.jpg":   bytes.Repeat([]byte{0xff, 0xd8, 0x03}, 100),
		},
	}

	var archives []*ziptest.Archive
	for _, page := range []string{"0001", "0002"} {
		var files []ziptest.File
		for _, name := range []string{"info.json", "0_0.jpg", "0_1.jpg"} {
			data, ok := pages[page][name]
			if !ok {
				continue
			}
			files = append(files, ziptest.File{Name: "1875_01_05/" + page + "/tiles/" + name, Data: data})
		}
		archive, err := ziptest.BuildArchive(files)
		if err != nil {
			t.Fatalf("BuildArchive() error = %v", err)
		}
		archives = append(archives, archive)
	}

	resource, collections := ziptest.Pack(4096, archives...)

	manifest := `{"zip_offsets":[`
	for i, page := range []string{"0001", "0002"} {
		loc := collections[i].Location(testArchiveURL)
		if i > 0 {
			manifest += ","
		}
		manifest += fmt.Sprintf(`{"ident":"1875_01_05/%s","ztype":"pdf","coll_offset":0,"dir_offset":1,"dir_size":1},`, page)
		manifest += fmt.Sprintf(`{"ident":"1875_01_05/%s","ztype":["tiles"],"coll_offset":%d,"dir_offset":%d,"dir_size":%d}`,
			page, loc.CollectionOffset, loc.DirectoryOffset, loc.DirectorySize)
	}
	manifest += `]}`

	storage := stor.NewMockStorage()
	storage.AddObject(testArchiveURL, resource)
	storage.AddObject(testBaseURL+"/1875_01_05/odw.json", []byte(manifest))

	return &issueFixture{
		storage:  storage,
		resource: resource,
		pages:    pages,
	}
}
