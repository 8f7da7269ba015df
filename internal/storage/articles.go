// Package storage implements the Postgres-backed article and subscriber stores.
package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/thecloudcode/newsletter/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const articleColumns = "id, title, description, url, source, image_url, published_at, created_at"

type ArticleStorage struct {
	db *sqlx.DB
}

func NewArticleStorage(db *sqlx.DB) *ArticleStorage {
	return &ArticleStorage{db: db}
}

func (s *ArticleStorage) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("articles").
		Where(sq.Eq{"url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("building exists query: %w", err)
	}

	var found []int
	if err := s.db.SelectContext(ctx, &found, query, args...); err != nil {
		return false, fmt.Errorf("checking url %s: %w", url, err)
	}
	return len(found) > 0, nil
}

// InsertMany stores a batch of articles in a single transaction. Either the
// whole batch lands or none of it does.
func (s *ArticleStorage) InsertMany(ctx context.Context, articles []model.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now()
	for _, a := range articles {
		query, args, err := psql.
			Insert("articles").
			Columns("title", "description", "url", "source", "image_url", "published_at", "created_at").
			Values(a.Title, a.Description, a.URL, a.Source, a.ImageURL, a.PublishedAt, now).
			ToSql()
		if err != nil {
			return fmt.Errorf("building insert query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting article %s: %w", a.URL, err)
		}
	}

	return tx.Commit()
}

// FindCreatedAfter returns articles ingested after t, oldest first.
func (s *ArticleStorage) FindCreatedAfter(ctx context.Context, t time.Time) ([]model.Article, error) {
	return s.selectArticles(ctx, psql.
		Select(articleColumns).
		From("articles").
		Where(sq.Gt{"created_at": t}).
		OrderBy("created_at ASC"))
}

// FindPublishedAfter returns articles published after t, newest first.
func (s *ArticleStorage) FindPublishedAfter(ctx context.Context, t time.Time) ([]model.Article, error) {
	return s.selectArticles(ctx, psql.
		Select(articleColumns).
		From("articles").
		Where(sq.Gt{"published_at": t}).
		OrderBy("published_at DESC"))
}

func (s *ArticleStorage) FindAll(ctx context.Context) ([]model.Article, error) {
	return s.selectArticles(ctx, psql.
		Select(articleColumns).
		From("articles").
		OrderBy("created_at ASC"))
}

func (s *ArticleStorage) selectArticles(ctx context.Context, builder sq.SelectBuilder) ([]model.Article, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var articles []model.Article
	if err := s.db.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("selecting articles: %w", err)
	}
	return articles, nil
}
