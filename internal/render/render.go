package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/DeafMist/blog-search/backend/internal/models"
)

// entryTemplate mirrors the article card markup used across the blog pages.
// html/template escapes every field for its context, so record content is
// only ever inserted as text or attribute values.
var entryTemplate = template.Must(template.New("entry").Parse(
	`<div class="article-card"><a href="{{.URL}}"><strong>{{.Title}}</strong></a>` +
		`<div class="meta">{{.Date}}</div><p>{{.Description}}</p></div>`,
))

// Entry renders a single result card.
func Entry(p models.Post) (string, error) {
	var buf bytes.Buffer
	if err := entryTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render entry %q: %w", p.URL, err)
	}
	return buf.String(), nil
}

// Write streams the cards for posts into w.
func Write(w io.Writer, posts []models.Post) error {
	for _, p := range posts {
		if err := entryTemplate.Execute(w, p); err != nil {
			return fmt.Errorf("render entry %q: %w", p.URL, err)
		}
	}
	return nil
}
