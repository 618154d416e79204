package extract

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/dfgiraldo/movalert/internal/news"
)

// Listings often carry only a teaser; bodies shorter than this are worth a
// full-article fetch.
const minBodyLen = 200

// BodyFetcher fills thin item bodies with readability-extracted article text.
type BodyFetcher struct {
	client *http.Client
}

// NewBodyFetcher creates a body fetcher.
func NewBodyFetcher(timeout time.Duration) *BodyFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &BodyFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// FillBodies fetches article text for items whose body is missing or a
// teaser. Failures leave the existing body in place; a failing domain is
// skipped for the rest of the batch.
func (f *BodyFetcher) FillBodies(ctx context.Context, items []news.Item) {
	failedDomains := make(map[string]struct{})

	for i := range items {
		if len(items[i].Body) >= minBodyLen {
			continue
		}

		u, _ := url.Parse(items[i].URL)
		domain := ""
		if u != nil {
			domain = strings.ToLower(u.Host)
		}
		if _, failed := failedDomains[domain]; failed {
			continue
		}

		text, err := f.fetchArticleText(ctx, items[i].URL)
		if err != nil {
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			log.Printf("Body fetch failed for %s — skipping remaining from %s", items[i].URL, domain)
			continue
		}
		if text != "" {
			items[i].Body = news.TruncateBody(text)
		}
	}
}

func (f *BodyFetcher) fetchArticleText(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "movalert/1.0 (news aggregator)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(bodyBytes)), parsedURL)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) > 100 {
		return text, nil
	}
	return "", nil
}
