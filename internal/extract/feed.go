package extract

import (
	"context"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/dfgiraldo/movalert/internal/news"
)

const maxPerSource = 30

// FeedSource pulls items from one RSS/Atom feed.
type FeedSource struct {
	name   string
	url    string
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source. If name is empty the feed title is
// used once parsed.
func NewFeedSource(name, url string) *FeedSource {
	return &FeedSource{name: name, url: url, parser: gofeed.NewParser()}
}

// Name returns the source name.
func (f *FeedSource) Name() string {
	if f.name != "" {
		return f.name
	}
	return f.url
}

// Fetch parses the feed and maps its entries into news items.
func (f *FeedSource) Fetch(ctx context.Context) ([]news.Item, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, err
	}

	source := f.name
	if source == "" {
		source = strings.TrimSpace(feed.Title)
	}

	var items []news.Item
	for _, entry := range feed.Items {
		if len(items) >= maxPerSource {
			break
		}
		item, ok := feedItem(entry, source)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func feedItem(entry *gofeed.Item, source string) (news.Item, bool) {
	link := entry.Link
	if link == "" {
		link = entry.GUID
	}
	title := strings.TrimSpace(entry.Title)
	if link == "" || title == "" {
		return news.Item{}, false
	}

	var published string
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC().Format(time.RFC3339)
	} else if entry.UpdatedParsed != nil {
		published = entry.UpdatedParsed.UTC().Format(time.RFC3339)
	}

	body := entry.Content
	if body == "" {
		body = entry.Description
	}

	return news.NewItem(source, link, title, stripHTML(body), published), true
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		if r == '<' {
			inTag = true
			result.WriteRune(' ')
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			result.WriteRune(r)
		}
	}

	s := result.String()
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", `"`)
	s = strings.ReplaceAll(s, "&#39;", "'")
	return strings.Join(strings.Fields(s), " ")
}
