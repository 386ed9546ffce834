package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	appI18n "github.com/pavelanni/contestreport/internal/i18n"
)

// UploadPage is the view model for the report form.
type UploadPage struct {
	BasePath string
	Event    string
	Error    string
	Detail   string
	Result   *Result
}

// Result describes a freshly generated report.
type Result struct {
	Event       int
	Rows        int
	DownloadURL string
	Filename    string
	Summary     string
}

// pageWriter keeps the first write error so markup can be emitted without
// checking every call.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) raw(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *pageWriter) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *pageWriter) render(ctx context.Context, c templ.Component) {
	if p.err != nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

const pageStyle = `body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
label { display: block; margin-top: 1rem; }
.error { color: #b00020; }
.detail { color: #555; font-family: monospace; }`

// Layout wraps body in the shared page chrome.
func Layout(body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		title := appI18n.T(ctx, "AppTitle")
		p.raw(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		p.text(title)
		p.raw(`</title><style>` + pageStyle + `</style></head><body><h1>`)
		p.text(title)
		p.raw(`</h1>`)
		p.render(ctx, body)
		p.raw(`</body></html>`)
		return p.err
	})
}

// IndexPage renders the upload form along with any error or finished report.
func IndexPage(page UploadPage) templ.Component {
	return Layout(templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<h2>`)
		p.text(appI18n.T(ctx, "UploadHeading"))
		p.raw(`</h2>`)

		if page.Error != "" {
			p.raw(`<p class="error">`)
			p.text(page.Error)
			p.raw(`</p>`)
		}
		if page.Detail != "" {
			p.raw(`<p class="detail">`)
			p.text(page.Detail)
			p.raw(`</p>`)
		}
		if page.Result != nil {
			p.render(ctx, resultBox(*page.Result))
		}
		p.render(ctx, uploadForm(page))
		return p.err
	}))
}

func resultBox(res Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<p>`)
		p.text(res.Summary)
		p.raw(`</p><p><a href="`)
		p.text(string(templ.URL(res.DownloadURL)))
		p.raw(`" download="`)
		p.text(res.Filename)
		p.raw(`">`)
		p.text(appI18n.T(ctx, "Download"))
		p.raw(`</a></p>`)
		return p.err
	})
}

var fileInputs = []struct {
	label  string
	name   string
	accept string
}{
	{"ResultsFile", "results", ".xlsx,.csv"},
	{"RosterFile", "roster", ".csv,.xlsx"},
	{"FeedbackFile", "feedback", ".xlsx,.csv"},
	{"HandlesFile", "handles", ".xlsx,.csv"},
}

func uploadForm(page UploadPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.raw(`<form method="post" action="`)
		p.text(string(templ.URL(page.BasePath + "/generate")))
		p.raw(`" enctype="multipart/form-data">`)
		for _, in := range fileInputs {
			p.raw(`<label>`)
			p.text(appI18n.T(ctx, in.label))
			p.raw(fmt.Sprintf(` <input type="file" name="%s" accept="%s" required></label>`, in.name, in.accept))
		}
		p.raw(`<label>`)
		p.text(appI18n.T(ctx, "EventNumber"))
		p.raw(` <input type="number" name="event" min="1" value="`)
		p.text(page.Event)
		p.raw(`" required></label><p><button type="submit">`)
		p.text(appI18n.T(ctx, "Generate"))
		p.raw(`</button></p></form>`)
		return p.err
	})
}
