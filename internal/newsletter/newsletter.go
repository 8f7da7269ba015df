// Package newsletter runs one digest send end to end: window check,
// curation, composition, and batched, throttled, personalized delivery to
// the active subscriber list.
package newsletter

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/thecloudcode/newsletter/internal/composer"
	"github.com/thecloudcode/newsletter/internal/delivery"
	"github.com/thecloudcode/newsletter/internal/model"
	"github.com/thecloudcode/newsletter/internal/reporter"
)

type ArticleProvider interface {
	FindPublishedAfter(ctx context.Context, t time.Time) ([]model.Article, error)
}

type SubscriberProvider interface {
	FindActive(ctx context.Context) ([]model.Subscriber, error)
}

type Curator interface {
	ProcessRecentArticles(ctx context.Context) ([]model.CuratedArticle, error)
	SelectTopArticles(curated []model.CuratedArticle) []model.CuratedArticle
}

type DigestComposer interface {
	GenerateDigest(curated []model.CuratedArticle) model.Digest
}

type Config struct {
	BatchSize int
	// SendDelay throttles individual sends inside a batch; BatchPause
	// separates batches. Both back off the mail transport's rate limits and
	// may be zero in tests.
	SendDelay   time.Duration
	BatchPause  time.Duration
	SiteBaseURL string
}

type Newsletter struct {
	articles    ArticleProvider
	subscribers SubscriberProvider
	curator     Curator
	composer    DigestComposer
	sender      delivery.Sender
	reporter    *reporter.Reporter
	cfg         Config
}

func New(
	articles ArticleProvider,
	subscribers SubscriberProvider,
	curator Curator,
	digestComposer DigestComposer,
	sender delivery.Sender,
	rep *reporter.Reporter,
	cfg Config,
) *Newsletter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Newsletter{
		articles:    articles,
		subscribers: subscribers,
		curator:     curator,
		composer:    digestComposer,
		sender:      sender,
		reporter:    rep,
		cfg:         cfg,
	}
}

// RunDigestSend builds and delivers one digest for articles published within
// the window. The subject template's %s verb receives the composed subject
// line. Empty inputs at any step (no articles, no curated content, no active
// subscribers) skip the run and return zero; partial delivery success is the
// expected outcome, not a failure.
func (n *Newsletter) RunDigestSend(ctx context.Context, window time.Duration, subjectTemplate string) (int, error) {
	recent, err := n.articles.FindPublishedAfter(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("reading published window: %w", err)
	}
	if len(recent) == 0 {
		log.Printf("[INFO] no articles published in the last %s, skipping send", window)
		return 0, nil
	}

	curated, err := n.curator.ProcessRecentArticles(ctx)
	if err != nil {
		return 0, fmt.Errorf("curating articles: %w", err)
	}
	selected := n.curator.SelectTopArticles(curated)

	digest := n.composer.GenerateDigest(selected)
	if digest.Empty() {
		log.Printf("[INFO] digest came out empty, skipping send")
		return 0, nil
	}
	subject := fmt.Sprintf(subjectTemplate, digest.Subject)

	subscribers, err := n.subscribers.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading active subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		log.Printf("[INFO] no active subscribers, skipping send")
		return 0, nil
	}

	sent := n.sendToSubscribers(ctx, subscribers, subject, digest.HTML)

	summary := fmt.Sprintf("digest run finished: %d processed, %d selected, %d/%d delivered",
		len(curated), len(selected), sent, len(subscribers))
	log.Printf("[INFO] %s", summary)
	n.reporter.Notify(summary)

	return sent, nil
}

// sendToSubscribers delivers the digest in fixed-size batches. A failed send
// is logged and never stops the rest of the batch or later batches.
func (n *Newsletter) sendToSubscribers(ctx context.Context, subscribers []model.Subscriber, subject, html string) int {
	sent := 0
	batches := lo.Chunk(subscribers, n.cfg.BatchSize)

	for i, batch := range batches {
		for j, sub := range batch {
			if j > 0 {
				n.pause(ctx, n.cfg.SendDelay)
			}
			if err := n.sender.SendHTML(ctx, sub.Email, subject, n.personalize(html, sub.Email)); err != nil {
				log.Printf("[ERROR] sending to %s: %v", sub.Email, err)
				continue
			}
			sent++
		}

		log.Printf("[INFO] batch %d/%d done", i+1, len(batches))
		if i < len(batches)-1 {
			n.pause(ctx, n.cfg.BatchPause)
		}
	}

	return sent
}

func (n *Newsletter) personalize(html, email string) string {
	escaped := url.QueryEscape(email)
	html = strings.ReplaceAll(html, composer.PlaceholderUnsubscribe, n.cfg.SiteBaseURL+"/unsubscribe?email="+escaped)
	return strings.ReplaceAll(html, composer.PlaceholderPreferences, n.cfg.SiteBaseURL+"/preferences?email="+escaped)
}

func (n *Newsletter) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
