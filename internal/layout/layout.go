// Package layout renders the HTML page shell and the compare dashboard.
package layout

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

// AppTitle is shown in the header bar of every page.
const AppTitle = "DAIN"

// CompareURL is the target of the header link.
const CompareURL = "/compare"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Page is one HTML document. Body must be trusted markup.
type Page struct {
	Title string
	Body  template.HTML
}

// Write renders p inside the header shell.
func Write(w io.Writer, p Page) error {
	data := struct {
		Page
		AppTitle   string
		CompareURL string
	}{p, AppTitle, CompareURL}

	if err := templates.ExecuteTemplate(w, "page.html", data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}

func renderBody(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
