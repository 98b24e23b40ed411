// Package templates holds the HTML components rendered by the web server.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/mapload/internal/core"
)

// FileRow is one line of the loaded file list.
type FileRow struct {
	Label  string
	Format core.Format
	ID     string
}

// ResultRow is the outcome of one uploaded file.
type ResultRow struct {
	File    string
	Format  core.Format
	Status  string // "loaded", "skipped" or "failed"
	Message string
}

// SessionPage renders the full page for a session.
func SessionPage(sessionID string, files []FileRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		id := templ.EscapeString(sessionID)
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>mapload session %s</title>
</head>
<body>
<main>
<h1>Session %s</h1>
<form method="post" action="/api/sessions/%s/files" enctype="multipart/form-data" hx-post="/api/sessions/%s/files" hx-target="#files" hx-encoding="multipart/form-data">
<input type="file" name="file" multiple>
<button type="submit">Load files</button>
</form>
<div id="files">`, id, id, id, id); err != nil {
			return err
		}
		if err := FileList(files).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `</div>
<p><a href="/api/sessions/%s/payload">Download payload</a></p>
</main>
</body>
</html>`, id)
		return err
	})
}

// FileList renders the loaded files of a session.
func FileList(files []FileRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(files) == 0 {
			_, err := io.WriteString(w, `<p class="empty">No files loaded</p>`)
			return err
		}
		if _, err := io.WriteString(w, `<table class="files"><thead><tr><th>File</th><th>Format</th></tr></thead><tbody>`); err != nil {
			return err
		}
		for _, f := range files {
			if _, err := fmt.Fprintf(w, `<tr><td>%s</td><td>%s</td></tr>`,
				templ.EscapeString(f.Label), templ.EscapeString(string(f.Format))); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</tbody></table>`)
		return err
	})
}

// LoadResults renders the per-file outcome of an upload followed by the
// session's file list.
func LoadResults(results []ResultRow, files []FileRow) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<ul class="results">`); err != nil {
			return err
		}
		for _, r := range results {
			line := templ.EscapeString(r.File)
			if r.Message != "" {
				line += ": " + templ.EscapeString(r.Message)
			}
			if _, err := fmt.Fprintf(w, `<li class="%s">%s</li>`, templ.EscapeString(r.Status), line); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</ul>`); err != nil {
			return err
		}
		return FileList(files).Render(ctx, w)
	})
}

// ErrorAlert renders an error message with its suggested action and code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert alert-error" role="alert"><p>%s</p>`, templ.EscapeString(message))
		if err != nil {
			return err
		}
		if action != "" {
			if _, err := fmt.Fprintf(w, `<p class="action">%s</p>`, templ.EscapeString(action)); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintf(w, `<p class="code">Code: %s</p></div>`, templ.EscapeString(code))
		return err
	})
}
