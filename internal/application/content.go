package application

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// RenderContent converts post content to the HTML sent to the CMS. HTML is
// passed through untouched; Markdown is rendered with GFM and sanitized.
func RenderContent(format model.ContentFormat, content string) (string, error) {
	switch format {
	case "", model.ContentFormatHTML:
		return content, nil
	case model.ContentFormatMarkdown:
		return renderMarkdown(content)
	default:
		return "", fmt.Errorf("unsupported content format %q", format)
	}
}

func renderMarkdown(src string) (string, error) {
	if src == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return htmlSanitizer.Sanitize(buf.String()), nil
}
