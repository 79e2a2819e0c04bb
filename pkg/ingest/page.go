package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/lightwiki/pkg/storage"
	"github.com/papercomputeco/lightwiki/pkg/vector"
)

// dateLayout is the scraped_date format written by the scraper.
const dateLayout = "2006-01-02"

// ScrapedPage is one entry of the scraper's JSON export.
type ScrapedPage struct {
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Authors     []string `json:"authors"`
	Tags        []string `json:"tags"`
	PageContent string   `json:"pagecontent"`
	Page        struct {
		URL string `json:"url"`
	} `json:"page"`
}

// ParsePages decodes a scraper export: a JSON array of pages.
func ParsePages(r io.Reader) ([]ScrapedPage, error) {
	var pages []ScrapedPage
	if err := json.NewDecoder(r).Decode(&pages); err != nil {
		return nil, fmt.Errorf("%w: parsing scraped pages: %w", vector.ErrDecode, err)
	}
	return pages, nil
}

// DocumentID derives the stable document id of a scraped page from its URL,
// or from its title when the scraper recorded no URL.
func DocumentID(p ScrapedPage) string {
	key := strings.TrimSpace(p.Page.URL)
	if key == "" {
		key = "title:" + strings.TrimSpace(p.Title)
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// Text is the content embedded for the page.
func (p ScrapedPage) Text() string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(p.Title); t != "" {
		parts = append(parts, t)
	}
	if len(p.Tags) > 0 {
		parts = append(parts, strings.Join(p.Tags, ", "))
	}
	if c := strings.TrimSpace(p.PageContent); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, "\n\n")
}

// StoragePage converts the scraped entry to page metadata. An unparseable
// date leaves CreatedAt zero.
func (p ScrapedPage) StoragePage() storage.Page {
	created, _ := time.Parse(dateLayout, strings.TrimSpace(p.Date))
	return storage.Page{
		ID:        DocumentID(p),
		Title:     p.Title,
		URL:       p.Page.URL,
		Content:   p.PageContent,
		CreatedAt: created,
	}
}
