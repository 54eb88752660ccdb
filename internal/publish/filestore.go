// Package publish is the persistence boundary for finished articles. The
// pipeline's final stage hands an Article to a Store and receives back a
// location identifier; everything about naming, formats, and directory
// layout lives here.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Article is a finished piece ready for publication.
type Article struct {
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Sources   []string  `json:"sources,omitempty"`
	Tone      string    `json:"tone"`
	WordCount int       `json:"wordCount"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists one article and returns a location identifier. Failures
// are reported to the caller but never retroactively invalidate work the
// pipeline already completed.
type Store interface {
	Store(ctx context.Context, article Article) (string, error)
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore writes each article to the local filesystem in four formats:
// markdown, HTML, plain text, and a metadata JSON sidecar. File names are
// derived from the topic slug plus a timestamp.
type FileStore struct {
	dir string
	now func() time.Time
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithClock replaces the timestamp source (used in tests).
func WithClock(now func() time.Time) FileStoreOption {
	return func(fs *FileStore) {
		fs.now = now
	}
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	fs := &FileStore{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Store writes the article in all formats and returns the markdown path as
// the location identifier.
func (fs *FileStore) Store(_ context.Context, article Article) (string, error) {
	if err := os.MkdirAll(fs.dir, 0o755); err != nil {
		return "", fmt.Errorf("publish: mkdir %s: %w", fs.dir, err)
	}

	stamp := fs.now()
	base := fmt.Sprintf("%s_%s", Slug(article.Topic), stamp.Format("20060102_150405"))

	mdPath := filepath.Join(fs.dir, base+".md")
	if err := writeFile(mdPath, article.Content); err != nil {
		return "", err
	}

	txtPath := filepath.Join(fs.dir, base+".txt")
	if err := writeFile(txtPath, article.Content); err != nil {
		return "", err
	}

	htmlPath := filepath.Join(fs.dir, base+".html")
	if err := writeFile(htmlPath, renderHTML(article)); err != nil {
		return "", err
	}

	if article.CreatedAt.IsZero() {
		article.CreatedAt = stamp
	}
	meta := metadata{
		Article:        article,
		CharacterCount: len(article.Content),
		Files: map[string]string{
			"markdown": mdPath,
			"text":     txtPath,
			"html":     htmlPath,
		},
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("publish: marshal metadata: %w", err)
	}
	metaPath := filepath.Join(fs.dir, base+"_metadata.json")
	if err := writeFile(metaPath, string(metaJSON)); err != nil {
		return "", err
	}

	return mdPath, nil
}

// metadata is the JSON sidecar written alongside the article files.
type metadata struct {
	Article        Article           `json:"article"`
	CharacterCount int               `json:"characterCount"`
	Files          map[string]string `json:"files"`
}

// Slug converts a topic into a filesystem-safe name: alphanumerics kept,
// spaces collapsed to underscores, everything lowercased.
func Slug(topic string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(topic) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == ' ', r == '-', r == '_':
			b.WriteRune('_')
		}
	}
	slug := b.String()
	for strings.Contains(slug, "__") {
		slug = strings.ReplaceAll(slug, "__", "_")
	}
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "untitled"
	}
	return slug
}

// renderHTML wraps the article content in a minimal standalone page.
func renderHTML(article Article) string {
	body := strings.ReplaceAll(html.EscapeString(article.Content), "\n", "<br>\n")
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; margin: 40px; }
        h1, h2, h3 { color: #333; }
        p { margin-bottom: 16px; }
        pre { background-color: #f4f4f4; padding: 10px; border-radius: 5px; }
    </style>
</head>
<body>
    <div id="content">
        %s
    </div>
</body>
</html>
`, html.EscapeString(article.Topic), body)
}

// writeFile writes content, creating parent directories as needed.
func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("publish: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("publish: write %s: %w", path, err)
	}
	return nil
}
