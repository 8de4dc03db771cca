package corpus

import (
	"time"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
	"github.com/softweb-fr/softweb-fr.github.io/internal/pkg/postql"
)

// record adapts an Article to the postql.Record interface.
// This keeps postql free of any dependency on the content model.
type record struct {
	a *content.Article
}

func (r record) GetTitle() string        { return r.a.Title }
func (r record) GetSlug() string         { return r.a.Slug }
func (r record) GetSection() string      { return r.a.Section }
func (r record) GetDescription() string  { return r.a.Description }
func (r record) GetLang() string         { return r.a.Lang }
func (r record) GetTags() []string       { return r.a.Tags }
func (r record) GetCategories() []string { return r.a.Categories }
func (r record) GetDraft() bool          { return r.a.Draft }
func (r record) GetDate() time.Time      { return r.a.Date }
func (r record) GetBody() string         { return string(r.a.Body) }

// MatchQuery evaluates a parsed query against an article.
func MatchQuery(node postql.Node, a *content.Article) bool {
	if node == nil {
		return true
	}
	return postql.Match(node, record{a: a})
}
