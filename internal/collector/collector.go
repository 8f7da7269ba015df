// Package collector fetches configured syndication feeds, deduplicates
// entries against the article store, resolves a representative image for
// each new entry, and persists the batch.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/thecloudcode/newsletter/internal/model"
	"github.com/thecloudcode/newsletter/internal/source"
)

// ErrFeedFetch marks a network or parse failure for a single feed. It is
// caught at the per-source boundary and treated as zero new articles.
var ErrFeedFetch = errors.New("feed fetch failed")

const maxDescriptionLen = 2000

type ArticleStore interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	InsertMany(ctx context.Context, articles []model.Article) error
}

type Config struct {
	Sources     []model.Source
	PageTimeout time.Duration
	UserAgent   string
}

type Collector struct {
	store  ArticleStore
	cfg    Config
	images *imageResolver
}

func New(store ArticleStore, cfg Config) *Collector {
	return &Collector{
		store:  store,
		cfg:    cfg,
		images: newImageResolver(cfg.PageTimeout, cfg.UserAgent),
	}
}

// CollectFromAllSources runs CollectFromSource for every configured source.
// A failing source is logged and skipped; the others still run.
func (c *Collector) CollectFromAllSources(ctx context.Context) int {
	total := 0
	for _, src := range c.cfg.Sources {
		n, err := c.CollectFromSource(ctx, src.FeedURL, src.Name)
		if err != nil {
			log.Printf("[ERROR] collecting from %s: %v", src.Name, err)
			continue
		}
		total += n
	}
	log.Printf("[INFO] collection round finished: %d new articles", total)
	return total
}

// CollectFromSource fetches one feed and stores its unseen entries in a
// single batch. It returns the number of newly stored articles.
func (c *Collector) CollectFromSource(ctx context.Context, feedURL, sourceName string) (int, error) {
	log.Printf("[INFO] fetching from %s: %s", sourceName, feedURL)

	items, err := source.NewRSSSource(feedURL, sourceName).Fetch(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrFeedFetch, sourceName, err)
	}

	var fresh []model.Article
	for _, item := range items {
		exists, err := c.store.ExistsByURL(ctx, item.Link)
		if err != nil {
			return 0, fmt.Errorf("checking %s for duplicates: %w", item.Link, err)
		}
		if exists {
			continue
		}
		fresh = append(fresh, c.buildArticle(ctx, item, sourceName))
	}

	if len(fresh) == 0 {
		return 0, nil
	}

	if err := c.store.InsertMany(ctx, fresh); err != nil {
		return 0, fmt.Errorf("inserting %d articles from %s: %w", len(fresh), sourceName, err)
	}

	log.Printf("[INFO] saved %d new articles from %s", len(fresh), sourceName)
	return len(fresh), nil
}

func (c *Collector) buildArticle(ctx context.Context, item model.Item, sourceName string) model.Article {
	published := time.Now()
	if item.HasPublished {
		published = item.Published.Local()
	}

	return model.Article{
		Title:       item.Title,
		Description: truncateDescription(item.Body),
		URL:         item.Link,
		Source:      sourceName,
		ImageURL:    c.images.Resolve(ctx, item),
		PublishedAt: published,
	}
}

// truncateDescription counts runes, not bytes: a byte slice could cut a
// multibyte character in half and produce invalid UTF-8 the store rejects.
func truncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= maxDescriptionLen {
		return s
	}
	return string([]rune(s)[:maxDescriptionLen-3]) + "..."
}
