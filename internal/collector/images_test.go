package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thecloudcode/newsletter/internal/model"
)

func testResolver() *imageResolver {
	return newImageResolver(2*time.Second, "test-agent")
}

func TestResolveEnclosureOutranksBody(t *testing.T) {
	t.Parallel()

	item := model.Item{
		Body: `<img src="http://example.com/from-body.jpg">`,
		Enclosures: []model.Enclosure{
			{URL: "http://example.com/audio.mp3", Type: "audio/mpeg"},
			{URL: "http://example.com/from-enclosure.jpg", Type: "image/jpeg"},
		},
	}

	got := testResolver().Resolve(context.Background(), item)
	assert.Equal(t, "http://example.com/from-enclosure.jpg", got)
}

func TestImageFromBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "absolute src accepted",
			body: `<p>hi</p><img src="https://example.com/a.png"><img src="https://example.com/b.png">`,
			want: "https://example.com/a.png",
		},
		{
			name: "relative src rejected",
			body: `<img src="/images/a.png">`,
			want: "",
		},
		{
			name: "no image",
			body: `<p>just text</p>`,
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, imageFromBody(tt.body))
		})
	}
}

func TestImageFromArticlePage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/og", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `<html><head>
<meta property="og:image" content="https://cdn.example.com/og.jpg">
<meta name="twitter:image" content="https://cdn.example.com/tw.jpg">
</head></html>`)
	})
	mux.HandleFunc("/twitter-only", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta name="twitter:image" content="https://cdn.example.com/tw.jpg"></head></html>`)
	})
	mux.HandleFunc("/relative-og", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:image" content="/og.jpg"></head></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	r := testResolver()
	ctx := context.Background()

	got, err := r.imageFromArticlePage(ctx, server.URL+"/og")
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/og.jpg", got)

	got, err = r.imageFromArticlePage(ctx, server.URL+"/twitter-only")
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/tw.jpg", got)

	got, err = r.imageFromArticlePage(ctx, server.URL+"/relative-og")
	assert.NoError(t, err)
	assert.Empty(t, got)

	_, err = r.imageFromArticlePage(ctx, server.URL+"/missing")
	assert.Error(t, err)
}

func TestResolvePageErrorIsNonFatal(t *testing.T) {
	t.Parallel()

	item := model.Item{Link: "http://127.0.0.1:0/unreachable"}
	assert.Empty(t, testResolver().Resolve(context.Background(), item))
}
