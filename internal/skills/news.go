package skills

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

const newsItemLimit = 10

var newsSources = []struct {
	Name string
	URL  string
}{
	{Name: "Tagesschau", URL: "https://www.tagesschau.de/xml/rss2/"},
	{Name: "BBC", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
	{Name: "DW", URL: "https://rss.dw.com/rdf/rss-de-all"},
}

type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
}

type NewsResult struct {
	Type  Kind       `json:"type"`
	Query string     `json:"query,omitempty"`
	Count int        `json:"count"`
	Items []NewsItem `json:"items"`
	Err   string     `json:"error,omitempty"`
}

type newsCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	fetchedAt time.Time
	items     []NewsItem
}

// News fetches headlines from the fixed feed set, merged and sorted by
// recency. The unfiltered item list is cached for a short TTL; a query
// filters by substring against title and description.
func (s *Service) News(ctx context.Context, query string) NewsResult {
	items, err := s.newsItems(ctx)
	if err != nil {
		log.Printf("[skill:news] fetch failed: %v", err)
		return NewsResult{Type: KindNews, Err: "Nachrichten konnten nicht geladen werden", Items: []NewsItem{}}
	}

	filtered := items
	if query != "" {
		lower := strings.ToLower(query)
		filtered = nil
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title), lower) ||
				strings.Contains(strings.ToLower(item.Description), lower) {
				filtered = append(filtered, item)
			}
		}
	}

	result := NewsResult{Type: KindNews, Query: query, Count: len(filtered)}
	if len(filtered) > newsItemLimit {
		filtered = filtered[:newsItemLimit]
	}
	result.Items = filtered
	if result.Items == nil {
		result.Items = []NewsItem{}
	}
	return result
}

func (s *Service) newsItems(ctx context.Context) ([]NewsItem, error) {
	s.newsCache.mu.Lock()
	defer s.newsCache.mu.Unlock()

	if s.newsCache.items != nil && time.Since(s.newsCache.fetchedAt) < s.newsCache.ttl {
		return s.newsCache.items, nil
	}

	var all []NewsItem
	for _, source := range newsSources {
		items, err := s.fetchFeed(ctx, source.URL, source.Name)
		if err != nil {
			log.Printf("[skill:news] %s failed: %v", source.Name, err)
			continue
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no feed source reachable")
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })

	s.newsCache.items = all
	s.newsCache.fetchedAt = time.Now()
	return all, nil
}

var (
	feedItemRe  = regexp.MustCompile(`(?s)<item>(.*?)</item>`)
	feedTitleRe = regexp.MustCompile(`(?s)<title>(?:<!\[CDATA\[)?(.*?)(?:\]\]>)?</title>`)
	feedLinkRe  = regexp.MustCompile(`(?s)<link>(?:<!\[CDATA\[)?(.*?)(?:\]\]>)?</link>`)
	feedDateRe  = regexp.MustCompile(`(?s)<pubDate>(.*?)</pubDate>`)
	feedDescRe  = regexp.MustCompile(`(?s)<description>(?:<!\[CDATA\[)?(.*?)(?:\]\]>)?</description>`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
)

// fetchFeed scrapes one RSS feed. Feeds are routed through a CORS-friendly
// proxy and parsed with a tolerant regex scan rather than a full XML parser;
// malformed entries are skipped.
func (s *Service) fetchFeed(ctx context.Context, feedURL, sourceName string) ([]NewsItem, error) {
	proxyURL := "https://api.allorigins.win/raw?url=" + url.QueryEscape(feedURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("feed status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	return parseFeedItems(string(body), sourceName), nil
}

func parseFeedItems(xml, sourceName string) []NewsItem {
	var items []NewsItem
	for _, m := range feedItemRe.FindAllStringSubmatch(xml, newsItemLimit) {
		itemXML := m[1]

		title := feedTitleRe.FindStringSubmatch(itemXML)
		link := feedLinkRe.FindStringSubmatch(itemXML)
		if title == nil || link == nil {
			continue
		}

		item := NewsItem{
			Title:  cleanFeedText(title[1]),
			URL:    strings.TrimSpace(link[1]),
			Date:   time.Now(),
			Source: sourceName,
		}
		if date := feedDateRe.FindStringSubmatch(itemXML); date != nil {
			if parsed, err := parseFeedDate(strings.TrimSpace(date[1])); err == nil {
				item.Date = parsed
			}
		}
		if desc := feedDescRe.FindStringSubmatch(itemXML); desc != nil {
			item.Description = truncate(cleanFeedText(desc[1]), 200)
		}
		items = append(items, item)
	}
	return items
}

func parseFeedDate(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

func cleanFeedText(text string) string {
	text = tagRe.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
	)
	return strings.TrimSpace(replacer.Replace(text))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
