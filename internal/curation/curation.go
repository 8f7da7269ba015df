// Package curation enriches recently collected articles with an AI-generated
// summary, relevance score, and category, then selects the digest set with a
// threshold-then-quorum rule.
package curation

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"sort"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/samber/lo"

	"github.com/thecloudcode/newsletter/internal/model"
	"github.com/thecloudcode/newsletter/internal/textgen"
)

const (
	fallbackSummary = "Unable to generate AI summary for this article."
	defaultScore    = 5
	defaultCategory = "General Tech"
)

type ArticleProvider interface {
	FindCreatedAfter(ctx context.Context, t time.Time) ([]model.Article, error)
	FindAll(ctx context.Context) ([]model.Article, error)
}

type TextGenerator interface {
	Summarize(title, body string) (string, error)
	Score(title, body string) (int, error)
	Categorize(title, body string) (string, error)
}

type Config struct {
	// RecentWindow bounds the created-after read; 24h in production.
	RecentWindow time.Duration
	// BatchLimit caps how many articles one run sends to the AI service.
	BatchLimit int
	// ScoreThreshold, MaxSelected, MinSelected drive SelectTopArticles.
	ScoreThreshold int
	MaxSelected    int
	MinSelected    int
	// CallDelay is the throttle between successive AI calls. Zero disables
	// it, which tests rely on.
	CallDelay time.Duration
}

func DefaultConfig(callDelay time.Duration) Config {
	return Config{
		RecentWindow:   24 * time.Hour,
		BatchLimit:     10,
		ScoreThreshold: 6,
		MaxSelected:    5,
		MinSelected:    3,
		CallDelay:      callDelay,
	}
}

type Curator struct {
	articles ArticleProvider
	ai       TextGenerator
	cfg      Config
	client   *http.Client
}

func New(articles ArticleProvider, ai TextGenerator, cfg Config) *Curator {
	return &Curator{
		articles: articles,
		ai:       ai,
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ProcessRecentArticles enriches articles ingested within the recent window.
// An empty window falls back to the whole store (degraded, logged, not an
// error). At most BatchLimit articles are processed, oldest first.
func (c *Curator) ProcessRecentArticles(ctx context.Context) ([]model.CuratedArticle, error) {
	recent, err := c.articles.FindCreatedAfter(ctx, time.Now().Add(-c.cfg.RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("reading recent articles: %w", err)
	}

	if len(recent) == 0 {
		log.Printf("[WARN] no articles in the last %s, processing the whole store", c.cfg.RecentWindow)
		recent, err = c.articles.FindAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading all articles: %w", err)
		}
	}

	if len(recent) > c.cfg.BatchLimit {
		recent = recent[:c.cfg.BatchLimit]
	}

	curated := make([]model.CuratedArticle, 0, len(recent))
	for i, article := range recent {
		log.Printf("[INFO] processing article %d/%d: %s", i+1, len(recent), article.Title)
		curated = append(curated, c.curate(ctx, article))
		if i < len(recent)-1 {
			c.pause(ctx)
		}
	}

	log.Printf("[INFO] curation finished: %d articles processed", len(curated))
	return curated, nil
}

// curate never drops an article: every AI failure is replaced with its
// documented fallback value.
func (c *Curator) curate(ctx context.Context, article model.Article) model.CuratedArticle {
	body := article.Description
	if body == "" {
		text, err := c.readableText(ctx, article.URL)
		if err != nil {
			log.Printf("[WARN] extracting page text for %s: %v", article.URL, err)
		} else {
			body = text
		}
	}

	summary, err := c.ai.Summarize(article.Title, body)
	if err != nil {
		log.Printf("[ERROR] summarizing %q: %v", article.Title, err)
		summary = fallbackSummary
	}

	score, err := c.ai.Score(article.Title, body)
	if err != nil {
		log.Printf("[ERROR] scoring %q: %v", article.Title, err)
		score = defaultScore
	}

	category, err := c.ai.Categorize(article.Title, body)
	if err != nil {
		log.Printf("[ERROR] categorizing %q: %v", article.Title, err)
		category = defaultCategory
	} else if !lo.Contains(textgen.Categories, category) {
		category = defaultCategory
	}

	return model.CuratedArticle{
		Article:   article,
		Summary:   summary,
		Score:     score,
		Category:  category,
		CuratedAt: time.Now(),
	}
}

// SelectTopArticles filters to scores at or above the threshold, sorted
// descending (stable, so input order breaks ties), capped at MaxSelected.
// When fewer than MinSelected qualify it backfills from the below-threshold
// pool until MinSelected or the pool runs out.
func (c *Curator) SelectTopArticles(curated []model.CuratedArticle) []model.CuratedArticle {
	top := lo.Filter(curated, func(a model.CuratedArticle, _ int) bool {
		return a.Score >= c.cfg.ScoreThreshold
	})
	sortByScoreDesc(top)
	if len(top) > c.cfg.MaxSelected {
		top = top[:c.cfg.MaxSelected]
	}

	if len(top) < c.cfg.MinSelected {
		rest := lo.Filter(curated, func(a model.CuratedArticle, _ int) bool {
			return a.Score < c.cfg.ScoreThreshold
		})
		sortByScoreDesc(rest)

		need := c.cfg.MinSelected - len(top)
		if need > len(rest) {
			need = len(rest)
		}
		top = append(top, rest[:need]...)
		log.Printf("[INFO] backfilled %d below-threshold articles to reach the digest minimum", need)
	}

	return top
}

func sortByScoreDesc(articles []model.CuratedArticle) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Score > articles[j].Score
	})
}

var redundantNewLines = regexp.MustCompile(`\n{3,}`)

// readableText fetches the article page and extracts its readable body,
// for feeds that ship entries without a description.
func (c *Curator) readableText(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := readability.FromReader(resp.Body, nil)
	if err != nil {
		return "", err
	}

	return redundantNewLines.ReplaceAllString(doc.TextContent, "\n"), nil
}

func (c *Curator) pause(ctx context.Context) {
	if c.cfg.CallDelay <= 0 {
		return
	}
	select {
	case <-time.After(c.cfg.CallDelay):
	case <-ctx.Done():
	}
}
