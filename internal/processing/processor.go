package processing

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/DeafMist/blog-search/backend/internal/models"
)

// SummaryLength is the rune budget of an extracted description.
const SummaryLength = 200

var whitespace = regexp.MustCompile(`\s+`)

// SqueezeSpace collapses whitespace runs and trims the ends.
func SqueezeSpace(input string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// NormalizeURL maps the assorted url shapes found in the blog state onto
// site-relative paths. baseURL is the site's path prefix, without a trailing slash.
func NormalizeURL(raw, baseURL string) string {
	url := strings.TrimSpace(raw)
	if url != "" && !strings.HasPrefix(url, "/") && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "/" + url
	}
	if strings.HasPrefix(url, "/site/site/") {
		url = strings.TrimPrefix(url, "/site")
	}
	if baseURL != "" && strings.HasPrefix(url, baseURL+"/") {
		url = strings.TrimPrefix(url, baseURL)
	}
	if strings.HasPrefix(url, "/site/posts/") {
		url = strings.TrimPrefix(url, "/site")
	}
	return url
}

// NormalizePosts fixes urls and drops repeated (title, date, url) entries,
// keeping the first. It reports whether anything changed.
func NormalizePosts(posts []models.Post, baseURL string) ([]models.Post, bool) {
	type key struct{ title, date, url string }

	seen := make(map[key]struct{}, len(posts))
	out := make([]models.Post, 0, len(posts))
	changed := false

	for _, p := range posts {
		url := NormalizeURL(p.URL, baseURL)
		if url != p.URL {
			changed = true
			p.URL = url
		}

		k := key{title: p.Title, date: p.Date, url: p.URL}
		if _, dup := seen[k]; dup {
			changed = true
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out, changed
}

// Summarize extracts readable text from an HTML page, preferring the first
// <article> element, and returns at most SummaryLength runes of it.
func Summarize(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	root := findElement(doc, "article")
	if root == nil {
		root = doc
	}

	var b strings.Builder
	collectText(root, &b)
	return Truncate(SqueezeSpace(b.String()), SummaryLength), nil
}

// SummarizeFile is Summarize over a file on disk.
func SummarizeFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Summarize(f)
}

// ContentPath resolves a post url to its HTML file, preferring blog-src/posts
// over posts when the former exists.
func ContentPath(root, url string) string {
	rel := strings.TrimPrefix(url, "/posts/")
	if rel == url {
		return ""
	}
	base := filepath.Join(root, "posts")
	if st, err := os.Stat(filepath.Join(root, "blog-src", "posts")); err == nil && st.IsDir() {
		base = filepath.Join(root, "blog-src", "posts")
	}
	return filepath.Join(base, filepath.FromSlash(rel))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template", "head":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
