package collector

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/thecloudcode/newsletter/internal/model"
)

const defaultPageTimeout = 5 * time.Second

// imageResolver finds a representative image for a feed entry. The fallback
// chain stops at the first hit: enclosure, then <img> in the entry body,
// then the article page's og:image / twitter:image meta tags.
type imageResolver struct {
	client    *http.Client
	userAgent string
}

func newImageResolver(timeout time.Duration, userAgent string) *imageResolver {
	if timeout <= 0 {
		timeout = defaultPageTimeout
	}
	return &imageResolver{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (r *imageResolver) Resolve(ctx context.Context, item model.Item) string {
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}

	if u := imageFromBody(item.Body); u != "" {
		return u
	}

	u, err := r.imageFromArticlePage(ctx, item.Link)
	if err != nil {
		// Non-fatal: the article simply ships without an image.
		log.Printf("[WARN] fetching image from article page %s: %v", item.Link, err)
		return ""
	}
	return u
}

// imageFromBody parses the entry body as HTML and returns the first <img>
// src, accepted only when it is an absolute URL.
func imageFromBody(body string) string {
	if body == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	if strings.HasPrefix(src, "http") {
		return src
	}
	return ""
}

func (r *imageResolver) imageFromArticlePage(ctx context.Context, pageURL string) (string, error) {
	if pageURL == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	for _, sel := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok && strings.HasPrefix(content, "http") {
			return content, nil
		}
	}
	return "", nil
}
