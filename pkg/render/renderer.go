package render

import (
	"context"

	"github.com/goliatone/go-resumekit/pkg/model"
)

// Renderer projects a resume document into a byte representation (HTML,
// Markdown, ...). Implementations are stateless: the same document and options
// always produce the same output, and nothing from a previous render is read.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, doc model.Document, options RenderOptions) ([]byte, error)
}
