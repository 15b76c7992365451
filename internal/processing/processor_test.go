package processing_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/blog-search/backend/internal/models"
	"github.com/DeafMist/blog-search/backend/internal/processing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "already relative", raw: "/posts/2024/01/01/a.html", want: "/posts/2024/01/01/a.html"},
		{name: "missing slash", raw: "posts/a.html", want: "/posts/a.html"},
		{name: "absolute kept", raw: "https://example.com/x", want: "https://example.com/x"},
		{name: "double site", raw: "/site/site/posts/a.html", want: "/posts/a.html"},
		{name: "site posts", raw: "/site/posts/a.html", want: "/posts/a.html"},
		{name: "base prefix", raw: "/blog/posts/a.html", base: "/blog", want: "/posts/a.html"},
		{name: "base not matched", raw: "/blogger/a.html", base: "/blog", want: "/blogger/a.html"},
		{name: "trimmed", raw: "  /a  ", want: "/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.NormalizeURL(tt.raw, tt.base))
		})
	}
}

func TestNormalizePosts(t *testing.T) {
	posts := []models.Post{
		{Title: "A", Date: "2024-01-01", URL: "/posts/a.html", Description: "first"},
		{Title: "A", Date: "2024-01-01", URL: "/site/posts/a.html", Description: "dup"},
		{Title: "B", Date: "2024-01-02", URL: "/posts/b.html"},
	}

	got, changed := processing.NormalizePosts(posts, "")
	require.True(t, changed)
	require.Len(t, got, 2)
	require.Equal(t, "first", got[0].Description)
	require.Equal(t, "/posts/b.html", got[1].URL)

	_, changed = processing.NormalizePosts(got, "")
	require.False(t, changed)
}

func TestSummarize(t *testing.T) {
	page := `<html><head><title>ignored</title><style>p{}</style></head><body>
		<nav>menu</nav>
		<article><h1>Hot  tour</h1>
		<script>alert(1)</script>
		<p>Sea and
		sun await.</p></article></body></html>`

	got, err := processing.Summarize(strings.NewReader(page))
	require.NoError(t, err)
	require.Equal(t, "Hot tour Sea and sun await.", got)
}

func TestSummarizeWithoutArticleAndTruncates(t *testing.T) {
	page := "<p>" + strings.Repeat("ж", 300) + "</p>"
	got, err := processing.Summarize(strings.NewReader(page))
	require.NoError(t, err)
	require.Len(t, []rune(got), processing.SummaryLength)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "héll", processing.Truncate("héllo", 4))
	require.Equal(t, "hi", processing.Truncate("hi", 4))
	require.Equal(t, "hi", processing.Truncate("hi", 0))
}

func TestContentPath(t *testing.T) {
	root := t.TempDir()
	require.Equal(t, filepath.Join(root, "posts", "2024", "01", "02", "a.html"), processing.ContentPath(root, "/posts/2024/01/02/a.html"))
	require.Equal(t, "", processing.ContentPath(root, "/about.html"))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog-src", "posts"), 0o755))
	require.Equal(t, filepath.Join(root, "blog-src", "posts", "a.html"), processing.ContentPath(root, "/posts/a.html"))
}

func TestSummarizeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "post.html")
	require.NoError(t, os.WriteFile(path, []byte("<article>Body text</article>"), 0o644))

	got, err := processing.SummarizeFile(path)
	require.NoError(t, err)
	require.Equal(t, "Body text", got)

	_, err = processing.SummarizeFile(filepath.Join(t.TempDir(), "missing.html"))
	require.Error(t, err)
}
