package skills

import (
	"context"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0"?>
<rss><channel>
<item>
  <title><![CDATA[Erste Meldung]]></title>
  <link>https://example.org/1</link>
  <pubDate>Mon, 02 Jan 2006 15:04:05 +0100</pubDate>
  <description><![CDATA[<p>Ein &amp; zwei</p>]]></description>
</item>
<item>
  <title>Zweite Meldung</title>
  <link>https://example.org/2</link>
</item>
<item>
  <link>https://example.org/missing-title</link>
</item>
</channel></rss>`

func TestParseFeedItems(t *testing.T) {
	items := parseFeedItems(sampleFeed, "Testquelle")
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2 (item without title skipped)", len(items))
	}

	first := items[0]
	if first.Title != "Erste Meldung" {
		t.Fatalf("Title = %q", first.Title)
	}
	if first.URL != "https://example.org/1" {
		t.Fatalf("URL = %q", first.URL)
	}
	if first.Description != "Ein & zwei" {
		t.Fatalf("Description = %q, want entities and tags stripped", first.Description)
	}
	if first.Source != "Testquelle" {
		t.Fatalf("Source = %q", first.Source)
	}
	if first.Date.Year() != 2006 {
		t.Fatalf("Date = %v, want parsed pubDate", first.Date)
	}
}

func TestNewsFilterAndCap(t *testing.T) {
	s := newTestService()

	// Seed the cache so no network fetch happens.
	items := make([]NewsItem, 0, 15)
	for i := 0; i < 15; i++ {
		items = append(items, NewsItem{Title: "Allgemein", Date: time.Now()})
	}
	items = append(items, NewsItem{Title: "Grönland schmilzt", Date: time.Now()})
	s.newsCache.items = items
	s.newsCache.fetchedAt = time.Now()

	all := s.News(context.Background(), "")
	if len(all.Items) != newsItemLimit {
		t.Fatalf("len(Items) = %d, want cap %d", len(all.Items), newsItemLimit)
	}
	if all.Count != 16 {
		t.Fatalf("Count = %d, want 16 (pre-cap)", all.Count)
	}

	filtered := s.News(context.Background(), "grönland")
	if len(filtered.Items) != 1 || filtered.Items[0].Title != "Grönland schmilzt" {
		t.Fatalf("filtered items = %+v, want single Grönland match", filtered.Items)
	}
}

func TestNewsFetchFailureIsStructured(t *testing.T) {
	s := newTestService()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	result := s.News(ctx, "")
	if result.Err == "" {
		t.Fatalf("expected structured error when all feeds are unreachable")
	}
	if result.Items == nil {
		t.Fatalf("Items should be an empty slice, not nil")
	}
}

func TestCleanFeedText(t *testing.T) {
	got := cleanFeedText(`  <b>Titel</b> &quot;A&quot; &#39;B&#39; &lt;C&gt; `)
	want := `Titel "A" 'B' <C>`
	if got != want {
		t.Fatalf("cleanFeedText = %q, want %q", got, want)
	}
}
