package textgen

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reply string
		want  int
	}{
		{"7", 7},
		{" 10 ", 10},
		{"Score: 8", 8},
		{"I'd rate it 6 out of 10.", 6},
		{"42", 10}, // clamped high
		{"0", 1},   // clamped low
	}
	for _, tt := range tests {
		got, err := parseScore(tt.reply)
		assert.NoError(t, err, "reply %q", tt.reply)
		assert.Equal(t, tt.want, got, "reply %q", tt.reply)
	}

	_, err := parseScore("no idea")
	assert.Error(t, err)
	_, err = parseScore("")
	assert.Error(t, err)
}

func TestCapText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", capText("abc", 10))
	long := strings.Repeat("x", 1200)
	got := capText(long, 1000)
	assert.Len(t, got, 1003)
	assert.True(t, strings.HasSuffix(got, "..."))

	multibyte := strings.Repeat("ü", 1200)
	got = capText(multibyte, 1000)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ü", 1000)+"...", got)
}

func TestPromptsRespectCaps(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("y", 5000)

	assert.Contains(t, summarizePrompt("T", body), strings.Repeat("y", summarizeBodyCap)+"...")
	assert.NotContains(t, scorePrompt("T", body), strings.Repeat("y", scoreBodyCap+1))
	assert.NotContains(t, categorizePrompt("T", body), strings.Repeat("y", categorizeBodyCap+1))

	prompt := subjectPrompt([]string{"One", "Two", "Three", "Four"})
	assert.Contains(t, prompt, "Three")
	assert.NotContains(t, prompt, "Four")
}

func TestCategorizePromptListsClosedSet(t *testing.T) {
	t.Parallel()

	prompt := categorizePrompt("T", "body")
	for _, category := range Categories {
		assert.Contains(t, prompt, category)
	}
}
