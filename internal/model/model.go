// Package model defines the data structures moved through the newsletter pipeline: feed sources and their raw items, stored articles, curated articles, subscribers, and the rendered digest.
package model

import "time"

type Source struct {
	Name    string
	FeedURL string
}

// Item is one raw feed entry before it becomes an Article.
type Item struct {
	Title        string
	Link         string
	Body         string
	Enclosures   []Enclosure
	Published    time.Time
	HasPublished bool
}

type Enclosure struct {
	URL  string
	Type string
}

type Article struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	URL         string    `db:"url"`
	Source      string    `db:"source"`
	ImageURL    string    `db:"image_url"`
	PublishedAt time.Time `db:"published_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// CuratedArticle wraps an Article with the AI enrichment for one run.
// It lives only for the duration of a digest run and is never persisted.
type CuratedArticle struct {
	Article   Article
	Summary   string
	Score     int
	Category  string
	CuratedAt time.Time
}

type Subscriber struct {
	ID     int64  `db:"id"`
	Email  string `db:"email"`
	Active bool   `db:"active"`
}

// Digest is one rendered newsletter. Articles is the number of curated
// articles in the body; a zero-article digest must not be sent.
type Digest struct {
	Subject  string
	HTML     string
	Articles int
}

func (d Digest) Empty() bool {
	return d.Articles == 0
}
