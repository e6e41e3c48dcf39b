package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ToolView is one MCP tool listed on the info page.
type ToolView struct {
	Name        string
	Description string
}

// InfoView holds everything the connection instructions page shows.
type InfoView struct {
	Name      string
	Version   string
	SSEURL    string
	MCPURL    string
	Tools     []ToolView
	Protocols []string
}

const pageStyle = `
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,sans-serif;background:linear-gradient(135deg,#667eea 0%,#764ba2 100%);min-height:100vh;margin:0;display:flex;align-items:center;justify-content:center;padding:20px}
.container{max-width:800px;background:rgba(255,255,255,.95);border-radius:20px;box-shadow:0 20px 60px rgba(0,0,0,.3);padding:40px}
h1{color:#667eea;margin:0 0 10px}
.status{display:inline-block;background:#10b981;color:#fff;padding:6px 18px;border-radius:20px;font-weight:600}
.url-box{font-family:monospace;background:#f3f4f6;border-radius:10px;padding:12px 16px;margin:8px 0;word-break:break-all}
.tool{border-left:4px solid #667eea;padding:8px 12px;margin:8px 0;background:#f9fafb}
.tool-name{font-weight:600;font-family:monospace}
.footer{margin-top:30px;color:#999;font-size:14px;text-align:center}
`

// Layout wraps body in the HTML document shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1.0"><title>`+
			templ.EscapeString(title)+`</title><style>`+pageStyle+`</style></head><body>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// InfoPage renders the connection instructions for MCP clients.
func InfoPage(v InfoView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.write(`<div class="container"><header><h1>`, templ.EscapeString(v.Name), `</h1>`)
		p.write(`<span class="status">Ready</span></header>`)

		p.write(`<section><h2>Connect</h2><p>Add one of these URLs to your MCP client:</p>`)
		p.write(`<div class="url-box" id="mcp-url">`, templ.EscapeString(v.MCPURL), `</div>`)
		p.write(`<div class="url-box" id="sse-url">`, templ.EscapeString(v.SSEURL), `</div></section>`)

		p.write(`<section><h2>Tools</h2>`)
		for _, t := range v.Tools {
			p.write(`<div class="tool"><div class="tool-name">`, templ.EscapeString(t.Name),
				`</div><div class="tool-desc">`, templ.EscapeString(t.Description), `</div></div>`)
		}
		p.write(`</section>`)

		p.write(`<section><h2>Protocols</h2><ul>`)
		for _, proto := range v.Protocols {
			p.write(`<li>`, templ.EscapeString(proto), `</li>`)
		}
		p.write(`</ul></section>`)

		p.write(`<div class="footer">Version `, templ.EscapeString(v.Version), `</div></div>`)
		return p.err
	})
}

// pageWriter keeps the first write error so markup can be emitted without
// checking each call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) write(parts ...string) {
	for _, s := range parts {
		if p.err != nil {
			return
		}
		_, p.err = io.WriteString(p.w, s)
	}
}
