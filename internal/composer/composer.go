// Package composer renders curated articles into the digest document sent to
// subscribers: an AI-generated subject line and an HTML body grouped by
// category.
package composer

import (
	"bytes"
	"html/template"
	"log"
	"strings"

	"github.com/samber/lo"

	"github.com/thecloudcode/newsletter/internal/model"
)

const (
	fallbackSubject = "Daily Tech Updates"
	subjectSeedCap  = 3

	// Personalization placeholders substituted per recipient at send time.
	PlaceholderUnsubscribe = "{{unsubscribeUrl}}"
	PlaceholderPreferences = "{{preferencesUrl}}"
)

type SubjectGenerator interface {
	SubjectLine(titles []string) (string, error)
}

type Composer struct {
	ai SubjectGenerator
}

func New(ai SubjectGenerator) *Composer {
	return &Composer{ai: ai}
}

// GenerateDigest renders the digest for the given curated set. An empty set
// yields an empty Digest; callers must check Empty() before sending. That is
// a valid terminal state, not an error.
func (c *Composer) GenerateDigest(curated []model.CuratedArticle) model.Digest {
	if len(curated) == 0 {
		return model.Digest{}
	}

	var buf bytes.Buffer
	err := digestTmpl.Execute(&buf, digestData{
		Groups: groupByCategory(curated),
		Footer: digestFooter,
	})
	if err != nil {
		log.Printf("[ERROR] rendering digest body: %v", err)
		return model.Digest{}
	}

	return model.Digest{
		Subject:  c.subject(curated),
		HTML:     buf.String(),
		Articles: len(curated),
	}
}

func (c *Composer) subject(curated []model.CuratedArticle) string {
	titles := lo.Map(curated, func(a model.CuratedArticle, _ int) string {
		return a.Article.Title
	})
	if len(titles) > subjectSeedCap {
		titles = titles[:subjectSeedCap]
	}

	subject, err := c.ai.SubjectLine(titles)
	if err != nil {
		log.Printf("[ERROR] generating subject line: %v", err)
		return fallbackSubject
	}
	if strings.TrimSpace(subject) == "" {
		return fallbackSubject
	}
	return strings.TrimSpace(subject)
}

type digestData struct {
	Groups []categoryGroup
	Footer template.HTML
}

// digestFooter is injected pre-rendered: the placeholder braces must survive
// verbatim for per-recipient substitution, and the template engine would
// percent-encode them inside an href attribute.
var digestFooter = template.HTML(
	`<a href="` + PlaceholderUnsubscribe + `" style="color: #ff6b35;">Unsubscribe</a> | ` +
		`<a href="` + PlaceholderPreferences + `" style="color: #ff6b35;">Email preferences</a>`)

type categoryGroup struct {
	Name     string
	Articles []model.CuratedArticle
}

// groupByCategory preserves the input order of first appearance per category
// and the input order of articles within each group.
func groupByCategory(curated []model.CuratedArticle) []categoryGroup {
	index := make(map[string]int)
	var groups []categoryGroup
	for _, a := range curated {
		i, ok := index[a.Category]
		if !ok {
			i = len(groups)
			index[a.Category] = i
			groups = append(groups, categoryGroup{Name: a.Category})
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}
	return groups
}

var digestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="color: #ff6b35;">TheCloudCode Daily Digest</h1>
<p>Today's top tech stories, curated for you:</p>
{{range .Groups}}<h2 style="border-bottom: 2px solid #f0f0f0; padding-bottom: 6px;">{{.Name}}</h2>
{{range .Articles}}<h3 style="margin-bottom: 4px;"><a href="{{.Article.URL}}" target="_blank" style="color: #ff6b35; text-decoration: none;">{{.Article.Title}}</a></h3>
<p style="margin-top: 4px;">{{.Summary}}</p>
<p style="color: #666; font-size: 13px;"><em>Source: {{.Article.Source}}</em></p>
<hr style="border: none; border-top: 1px solid #f0f0f0;">
{{end}}{{end}}
<p>Thank you for subscribing to TheCloudCode Newsletter!</p>
<p style="font-size: 12px; color: #999;">{{.Footer}}</p>
</body>
</html>
`))
