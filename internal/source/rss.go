// Package source implements the RSSSource struct and its methods for fetching and mapping syndication feed entries.
package source

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/SlyMarbo/rss"
	"github.com/samber/lo"

	"github.com/thecloudcode/newsletter/internal/model"
)

// contextTransport injects a context into every outgoing request so that
// context cancellation and deadlines propagate through the rss library.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

type RSSSource struct {
	URL        string
	SourceName string
}

func NewRSSSource(feedURL, name string) RSSSource {
	return RSSSource{
		URL:        feedURL,
		SourceName: name,
	}
}

func (s RSSSource) Fetch(ctx context.Context) ([]model.Item, error) {
	feed, err := s.loadFeed(ctx, s.URL)
	if err != nil {
		return nil, err
	}

	return lo.Map(feed.Items, func(item *rss.Item, _ int) model.Item {
		return model.Item{
			Title:        item.Title,
			Link:         item.Link,
			Body:         itemText(item),
			Enclosures:   enclosures(item),
			Published:    item.Date,
			HasPublished: item.DateValid,
		}
	}), nil
}

// itemText returns the richest available text for an item. Content (full
// body) is preferred over Summary (short excerpt).
func itemText(item *rss.Item) string {
	if c := strings.TrimSpace(item.Content); c != "" {
		return c
	}
	return strings.TrimSpace(item.Summary)
}

func enclosures(item *rss.Item) []model.Enclosure {
	return lo.FilterMap(item.Enclosures, func(e *rss.Enclosure, _ int) (model.Enclosure, bool) {
		if e == nil {
			return model.Enclosure{}, false
		}
		return model.Enclosure{URL: e.URL, Type: e.Type}, true
	})
}

func (s RSSSource) loadFeed(ctx context.Context, url string) (*rss.Feed, error) {
	client := &http.Client{
		Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
		Timeout:   30 * time.Second,
	}
	return rss.FetchByClient(url, client)
}

func (s RSSSource) Name() string {
	return s.SourceName
}
