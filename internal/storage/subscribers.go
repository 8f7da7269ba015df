package storage

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/thecloudcode/newsletter/internal/model"
)

// SubscriberStorage is read-only here: subscribe/unsubscribe lifecycle is
// owned by the web layer.
type SubscriberStorage struct {
	db *sqlx.DB
}

func NewSubscriberStorage(db *sqlx.DB) *SubscriberStorage {
	return &SubscriberStorage{db: db}
}

func (s *SubscriberStorage) FindActive(ctx context.Context) ([]model.Subscriber, error) {
	query, args, err := psql.
		Select("id, email, active").
		From("subscribers").
		Where(sq.Eq{"active": true}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building subscribers query: %w", err)
	}

	var subscribers []model.Subscriber
	if err := s.db.SelectContext(ctx, &subscribers, query, args...); err != nil {
		return nil, fmt.Errorf("selecting active subscribers: %w", err)
	}
	return subscribers, nil
}
