package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dfgiraldo/movalert/internal/config"
	"github.com/dfgiraldo/movalert/internal/news"
)

// PageSource scrapes a news listing page with configured CSS selectors.
// The selectors live in config; this source only walks the document.
type PageSource struct {
	cfg    config.Page
	client *http.Client
}

// NewPageSource creates a page source from its config.
func NewPageSource(cfg config.Page) *PageSource {
	return &PageSource{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name returns the source name.
func (p *PageSource) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return p.cfg.URL
}

// Fetch downloads the listing page and extracts one item per matched node.
func (p *PageSource) Fetch(ctx context.Context) ([]news.Item, error) {
	if p.cfg.ItemSelector == "" || p.cfg.TitleSelector == "" || p.cfg.LinkSelector == "" {
		return nil, fmt.Errorf("page source %s: item, title, and link selectors are required", p.Name())
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "movalert/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}

	base, err := url.Parse(p.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	var items []news.Item
	doc.Find(p.cfg.ItemSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(items) >= maxPerSource {
			return false
		}

		title := strings.TrimSpace(sel.Find(p.cfg.TitleSelector).First().Text())
		href, _ := sel.Find(p.cfg.LinkSelector).First().Attr("href")
		if title == "" || href == "" {
			return true
		}

		link := resolveLink(base, href)
		if link == "" {
			return true
		}

		body := ""
		if p.cfg.SummarySelector != "" {
			body = strings.TrimSpace(sel.Find(p.cfg.SummarySelector).First().Text())
		}

		items = append(items, news.NewItem(p.Name(), link, title, body, ""))
		return true
	})

	return items, nil
}

func resolveLink(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
