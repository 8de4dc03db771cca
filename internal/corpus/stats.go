package corpus

import (
	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

// LinkStats counts outgoing references by kind.
type LinkStats struct {
	Internal int `json:"internal"`
	External int `json:"external"`
	Anchors  int `json:"anchors"`
	Images   int `json:"images"`
}

// Stats contains aggregate metrics over the whole corpus.
type Stats struct {
	Articles       int            `json:"articles"`
	Drafts         int            `json:"drafts"`
	Words          int64          `json:"words"`
	ReadingMinutes int            `json:"reading_minutes"`
	Sections       map[string]int `json:"sections"`
	Tags           map[string]int `json:"tags"`
	Languages      map[string]int `json:"languages"`
	Years          map[int]int    `json:"years"`
	FenceLanguages map[string]int `json:"fence_languages"`
	Links          LinkStats      `json:"links"`
	Newest         string         `json:"newest,omitempty"` // date of the newest article
	Oldest         string         `json:"oldest,omitempty"`
}

// Stats computes aggregate metrics over the indexed articles.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	st := Stats{
		Sections:       make(map[string]int),
		Tags:           make(map[string]int),
		Languages:      make(map[string]int),
		Years:          make(map[int]int),
		FenceLanguages: make(map[string]int),
	}

	var newest, oldest *content.Article
	for _, a := range ix.sorted {
		st.Articles++
		if a.Draft {
			st.Drafts++
		}
		st.Words += int64(a.WordCount)
		st.ReadingMinutes += a.ReadingMinutes()

		if a.Section != "" {
			st.Sections[a.Section]++
		}
		for _, tag := range a.Tags {
			st.Tags[tag]++
		}
		if a.Lang != "" {
			st.Languages[a.Lang]++
		}
		if y := a.Year(); y > 0 {
			st.Years[y]++
		}

		for _, f := range a.Fences {
			lang := f.Info
			if lang == "" {
				lang = "none"
			}
			st.FenceLanguages[lang]++
		}

		for _, l := range a.Links {
			if l.IsImage {
				st.Links.Images++
			}
			switch l.Kind {
			case content.LinkInternal:
				st.Links.Internal++
			case content.LinkExternal:
				st.Links.External++
			case content.LinkAnchor:
				st.Links.Anchors++
			}
		}

		if !a.Date.IsZero() {
			if newest == nil || a.Date.After(newest.Date) {
				newest = a
			}
			if oldest == nil || a.Date.Before(oldest.Date) {
				oldest = a
			}
		}
	}

	if newest != nil {
		st.Newest = newest.Date.Format("2006-01-02")
	}
	if oldest != nil {
		st.Oldest = oldest.Date.Format("2006-01-02")
	}
	return st
}
