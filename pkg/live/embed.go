package live

import (
	"embed"
	"io/fs"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the page shell template.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}
