// Package content defines the article model of the blog corpus and the
// parsing of Hugo-style Markdown documents: front matter, body structure,
// slugs and digests.
package content

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
)

// LinkKind classifies a link destination.
type LinkKind int

const (
	// LinkInternal points at another document or asset of this site.
	LinkInternal LinkKind = iota
	// LinkExternal points at another host.
	LinkExternal
	// LinkAnchor points at a heading of the same document ("#fragment").
	LinkAnchor
	// LinkSkip is a scheme the checker does not probe (mailto, tel, data).
	LinkSkip
)

// Link is one outgoing reference found in an article body.
type Link struct {
	Dest     string   // destination exactly as written
	Kind     LinkKind // classification relative to the site
	Line     int      // 1-based line in the source file
	IsImage  bool     // true for image references
	Target   string   // cleaned site-relative target for internal links
	Fragment string   // anchor part, if any
}

// Fence is one fenced code block.
type Fence struct {
	Info   string // info string (language tag), may be empty
	Line   int    // 1-based line of the opening fence
	Closed bool   // false when the fence runs to end of file
	Empty  bool   // true when the block has no content lines
}

// Heading is one section heading with its generated anchor.
type Heading struct {
	Level  int
	Text   string
	Anchor string
	Line   int
}

// FrontMatter is the content schema consumed by the site generator.
type FrontMatter struct {
	Title       string
	Date        time.Time
	RawDate     string // date value as written, kept for diagnostics
	Draft       bool
	Slug        string
	Description string
	Tags        []string
	Categories  []string
	Lang        string
	Aliases     []string
}

// Article is one Markdown document under content/ plus its parsed structure.
type Article struct {
	Path    string // relative to the content dir, slash-separated
	Section string // first path element of Path, "" for root pages
	Slug    string
	Format  Format
	FrontMatter

	Body     []byte
	BodyLine int // 1-based line where the body starts

	Digest      string // BLAKE2b-256 of the raw file, hex
	WordCount   int
	UnknownKeys []string

	Links    []Link
	Fences   []Fence
	Headings []Heading
}

// ParseOptions adjusts parsing for the surrounding site.
type ParseOptions struct {
	// BaseURL is the published site root. Absolute links to this host are
	// classified as internal.
	BaseURL *url.URL
}

// Parse builds an Article from a raw Markdown file. relPath is the path
// relative to the content directory, used for slugs and reporting. Errors
// are limited to documents whose front matter cannot be decoded at all;
// schema problems are left to the check rules.
func Parse(relPath string, data []byte, opts ParseOptions) (*Article, error) {
	fmRaw, body, bodyLine, format, err := Split(data)
	if err != nil {
		return nil, err
	}

	fm, unknown, err := Decode(fmRaw, format)
	if err != nil {
		return nil, err
	}

	a := &Article{
		Path:        path.Clean(strings.ReplaceAll(relPath, "\\", "/")),
		Format:      format,
		FrontMatter: fm,
		Body:        body,
		BodyLine:    bodyLine,
		Digest:      DigestHex(data),
		WordCount:   len(strings.Fields(string(body))),
		UnknownKeys: unknown,
	}
	a.Section = sectionOf(a.Path)
	a.Slug = fm.Slug
	if a.Slug == "" {
		a.Slug = SlugFromPath(a.Path)
	}

	st := extractStructure(body, bodyLine, opts)
	a.Links = st.links
	a.Fences = st.fences
	a.Headings = st.headings

	return a, nil
}

// ReadingMinutes estimates reading time from the word count.
func (a *Article) ReadingMinutes() int {
	if a.WordCount == 0 {
		return 0
	}
	return (a.WordCount + 219) / 220
}

// Year returns the publication year, or 0 when the date is unset.
func (a *Article) Year() int {
	if a.Date.IsZero() {
		return 0
	}
	return a.Date.Year()
}

var fileDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// SlugFromPath derives a slug from the file path the way the generator
// does: bundle index files take their directory name, a leading
// YYYY-MM-DD- date prefix is stripped, and the rest is slugified.
func SlugFromPath(relPath string) string {
	base := path.Base(relPath)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "index" || base == "_index" {
		dir := path.Base(path.Dir(relPath))
		if dir != "." && dir != "/" {
			base = dir
		}
	}
	base = fileDatePrefix.ReplaceAllString(base, "")
	return Slugify(base)
}

func sectionOf(relPath string) string {
	parts := strings.Split(relPath, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}
