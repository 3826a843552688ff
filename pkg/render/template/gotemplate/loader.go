package gotemplate

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// rootLoader resolves every template name, including the targets of
// include and extends tags, against the root of files. pongo2's own loaders
// resolve relative to the including template's directory.
type rootLoader struct {
	files fs.FS
}

var _ pongo2.TemplateLoader = (*rootLoader)(nil)

func newRootLoader(files fs.FS) *rootLoader {
	return &rootLoader{files: files}
}

// Abs ignores base.
func (l *rootLoader) Abs(_, name string) string {
	cleaned := path.Clean("/" + strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	return strings.TrimPrefix(cleaned, "/")
}

func (l *rootLoader) Get(name string) (io.Reader, error) {
	data, err := fs.ReadFile(l.files, name)
	if err != nil {
		return nil, fmt.Errorf("gotemplate: read %q: %w", name, err)
	}
	return bytes.NewReader(data), nil
}
