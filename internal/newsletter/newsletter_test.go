package newsletter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecloudcode/newsletter/internal/composer"
	"github.com/thecloudcode/newsletter/internal/model"
)

type fakeArticles struct {
	published []model.Article
	err       error
}

func (f *fakeArticles) FindPublishedAfter(context.Context, time.Time) ([]model.Article, error) {
	return f.published, f.err
}

type fakeSubscribers struct {
	active []model.Subscriber
}

func (f *fakeSubscribers) FindActive(context.Context) ([]model.Subscriber, error) {
	return f.active, nil
}

type fakeCurator struct {
	curated []model.CuratedArticle
	called  bool
}

func (f *fakeCurator) ProcessRecentArticles(context.Context) ([]model.CuratedArticle, error) {
	f.called = true
	return f.curated, nil
}

func (f *fakeCurator) SelectTopArticles(curated []model.CuratedArticle) []model.CuratedArticle {
	return curated
}

type fakeComposer struct {
	digest model.Digest
}

func (f *fakeComposer) GenerateDigest(curated []model.CuratedArticle) model.Digest {
	if len(curated) == 0 {
		return model.Digest{}
	}
	return f.digest
}

type sentMail struct {
	to      string
	subject string
	html    string
}

type fakeSender struct {
	failFor map[string]bool
	sent    []sentMail
}

func (f *fakeSender) SendHTML(_ context.Context, to, subject, html string) error {
	if f.failFor[to] {
		return errors.New("bounce")
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func subscribers(emails ...string) []model.Subscriber {
	out := make([]model.Subscriber, len(emails))
	for i, e := range emails {
		out[i] = model.Subscriber{ID: int64(i + 1), Email: e, Active: true}
	}
	return out
}

func testNewsletter(articles *fakeArticles, subs *fakeSubscribers, curator *fakeCurator, comp *fakeComposer, sender *fakeSender) *Newsletter {
	return New(articles, subs, curator, comp, sender, nil, Config{
		BatchSize:   2,
		SiteBaseURL: "https://thecloudcode.com",
		// zero delays in tests
	})
}

func digestFixture() model.Digest {
	return model.Digest{
		Subject:  "Tech Brief: Chips",
		HTML:     `<html><body>hi <a href="` + composer.PlaceholderUnsubscribe + `">out</a></body></html>`,
		Articles: 2,
	}
}

func TestRunDigestSendDeliversToAllBatches(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := testNewsletter(
		&fakeArticles{published: []model.Article{{ID: 1}}},
		&fakeSubscribers{active: subscribers("a@x.com", "b@x.com", "c@x.com")},
		&fakeCurator{curated: []model.CuratedArticle{{Score: 7}}},
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	sent, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	require.Len(t, sender.sent, 3)
	assert.Equal(t, "Daily: Tech Brief: Chips", sender.sent[0].subject)
}

func TestRunDigestSendIsolatesFailedRecipients(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failFor: map[string]bool{"b@x.com": true}}
	n := testNewsletter(
		&fakeArticles{published: []model.Article{{ID: 1}}},
		&fakeSubscribers{active: subscribers("a@x.com", "b@x.com", "c@x.com")},
		&fakeCurator{curated: []model.CuratedArticle{{Score: 7}}},
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	sent, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	// The middle failure must not stop the rest of the batch.
	assert.Equal(t, 2, sent)
	assert.Equal(t, "a@x.com", sender.sent[0].to)
	assert.Equal(t, "c@x.com", sender.sent[1].to)
}

func TestRunDigestSendSkipsWhenWindowIsEmpty(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	curator := &fakeCurator{curated: []model.CuratedArticle{{Score: 7}}}
	n := testNewsletter(
		&fakeArticles{},
		&fakeSubscribers{active: subscribers("a@x.com")},
		curator,
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	sent, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, sender.sent)
	// Short-circuits before any curation work.
	assert.False(t, curator.called)
}

func TestRunDigestSendSkipsWhenDigestIsEmpty(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := testNewsletter(
		&fakeArticles{published: []model.Article{{ID: 1}}},
		&fakeSubscribers{active: subscribers("a@x.com")},
		&fakeCurator{}, // no curated articles
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	sent, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, sender.sent)
}

func TestRunDigestSendSkipsWithoutSubscribers(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := testNewsletter(
		&fakeArticles{published: []model.Article{{ID: 1}}},
		&fakeSubscribers{},
		&fakeCurator{curated: []model.CuratedArticle{{Score: 7}}},
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	sent, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, sender.sent)
}

func TestRunDigestSendPersonalizesPerRecipient(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := testNewsletter(
		&fakeArticles{published: []model.Article{{ID: 1}}},
		&fakeSubscribers{active: subscribers("a+tag@x.com")},
		&fakeCurator{curated: []model.CuratedArticle{{Score: 7}}},
		&fakeComposer{digest: digestFixture()},
		sender,
	)

	_, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	html := sender.sent[0].html
	assert.NotContains(t, html, composer.PlaceholderUnsubscribe)
	assert.Contains(t, html, "https://thecloudcode.com/unsubscribe?email=a%2Btag%40x.com")
}

func TestRunDigestSendPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	n := testNewsletter(
		&fakeArticles{err: errors.New("db down")},
		&fakeSubscribers{},
		&fakeCurator{},
		&fakeComposer{},
		&fakeSender{},
	)

	_, err := n.RunDigestSend(context.Background(), 24*time.Hour, "Daily: %s")
	assert.Error(t, err)
}
