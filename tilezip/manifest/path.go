package manifest

import (
	"strings"

	tzerrors "github.com/flaneur2020/tilezip/tilezip/errors"
)

const tilesSeparator = "/tiles/"

// SplitPath splits a tile request path into the issue part and the entry
// identifier, e.g. "1875_01_05/0003/tiles/0_0.jpg" becomes
// ("1875_01_05/0003", "0_0.jpg"). A bare ".../info.json" is read as
// ".../tiles/info.json".
func SplitPath(path string) (issue string, identifier string, err error) {
	p := path
	if !strings.Contains(p, "tiles") && strings.Contains(p, "info.json") {
		p = strings.Replace(p, "info.json", "tiles/info.json", 1)
	}

	issue, identifier, ok := strings.Cut(p, tilesSeparator)
	issue = strings.Trim(issue, "/")
	if !ok || issue == "" || identifier == "" {
		return "", "", tzerrors.NewInvalidPathError(path)
	}
	return issue, identifier, nil
}
