package extract

import (
	"encoding/json"
	"strings"
)

// Source names the metadata provider that produced a record.
type Source string

const (
	SourceGoogle      Source = "google"
	SourceOpenLibrary Source = "openlibrary"
	SourceNone        Source = "none"
)

// Metadata is the provider independent view of a book's bibliographic data.
type Metadata struct {
	Title         string   `json:"title,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	Description   string   `json:"description,omitempty"`
	Authors       []string `json:"authors"`
	Categories    []string `json:"categories"`
	PublishedDate string   `json:"published_date,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	Source        Source   `json:"source"`
}

// EmptyMetadata is the terminal result when no provider knew the ISBN.
func EmptyMetadata() Metadata {
	return Metadata{
		Authors:    []string{},
		Categories: []string{},
		Source:     SourceNone,
	}
}

// IsEmpty reports whether m carries no bibliographic field at all. Any single
// field is enough for a provider's answer to count.
func (m Metadata) IsEmpty() bool {
	return m.Title == "" && m.ImageURL == "" && m.Description == "" &&
		len(m.Authors) == 0 && len(m.Categories) == 0 &&
		m.PublishedDate == "" && m.PageCount == nil
}

// googleVolumes matches books/v1/volumes?q=isbn:...
type googleVolumes struct {
	Items []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			Description   string   `json:"description"`
			PublishedDate string   `json:"publishedDate"`
			PageCount     int      `json:"pageCount"`
			Categories    []string `json:"categories"`
			ImageLinks    struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// openLibraryBook matches api/books?jscmd=data
type openLibraryBook struct {
	Title       string `json:"title"`
	PublishDate string `json:"publish_date"`
	Cover       struct {
		Large  string `json:"large"`
		Medium string `json:"medium"`
	} `json:"cover"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	Subjects []struct {
		Name string `json:"name"`
	} `json:"subjects"`
	NumberOfPages int             `json:"number_of_pages"`
	Notes         json.RawMessage `json:"notes"` // string or {type, value}
	Excerpts      []struct {
		Text string `json:"text"`
	} `json:"excerpts"`
}

// NormalizeMetadata maps a raw provider payload onto Metadata. It returns
// false when the payload is malformed or does not describe the ISBN.
func NormalizeMetadata(source Source, payload []byte, isbn string) (Metadata, bool) {
	switch source {
	case SourceGoogle:
		return normalizeGoogle(payload)
	case SourceOpenLibrary:
		return normalizeOpenLibrary(payload, isbn)
	default:
		return EmptyMetadata(), false
	}
}

func normalizeGoogle(payload []byte) (Metadata, bool) {
	var res googleVolumes
	if err := json.Unmarshal(payload, &res); err != nil || len(res.Items) == 0 {
		return EmptyMetadata(), false
	}
	v := res.Items[0].VolumeInfo

	image := v.ImageLinks.Thumbnail
	if image == "" {
		image = v.ImageLinks.SmallThumbnail
	}

	m := Metadata{
		Title:         strings.TrimSpace(v.Title),
		ImageURL:      upgradeScheme(image),
		Description:   strings.TrimSpace(v.Description),
		Authors:       compact(v.Authors),
		Categories:    compact(v.Categories),
		PublishedDate: v.PublishedDate,
		PageCount:     positive(v.PageCount),
		Source:        SourceGoogle,
	}
	return m, !m.IsEmpty()
}

func normalizeOpenLibrary(payload []byte, isbn string) (Metadata, bool) {
	var res map[string]openLibraryBook
	if err := json.Unmarshal(payload, &res); err != nil {
		return EmptyMetadata(), false
	}
	b, ok := res["ISBN:"+isbn]
	if !ok {
		return EmptyMetadata(), false
	}

	image := b.Cover.Large
	if image == "" {
		image = b.Cover.Medium
	}

	authors := make([]string, 0, len(b.Authors))
	for _, a := range b.Authors {
		authors = append(authors, a.Name)
	}
	subjects := make([]string, 0, len(b.Subjects))
	for _, s := range b.Subjects {
		subjects = append(subjects, s.Name)
	}

	description := formatNotes(b.Notes)
	if description == "" && len(b.Excerpts) > 0 {
		description = strings.TrimSpace(b.Excerpts[0].Text)
	}

	m := Metadata{
		Title:         strings.TrimSpace(b.Title),
		ImageURL:      image,
		Description:   description,
		Authors:       compact(authors),
		Categories:    compact(subjects),
		PublishedDate: b.PublishDate,
		PageCount:     positive(b.NumberOfPages),
		Source:        SourceOpenLibrary,
	}
	return m, !m.IsEmpty()
}

func formatNotes(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var typed struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &typed); err == nil {
		return strings.TrimSpace(typed.Value)
	}
	return ""
}

func upgradeScheme(u string) string {
	if strings.HasPrefix(u, "http:") {
		return "https:" + strings.TrimPrefix(u, "http:")
	}
	return u
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
