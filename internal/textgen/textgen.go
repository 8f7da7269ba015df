// Package textgen wraps the AI text backends behind one Generator contract:
// summarize, score, categorize, and subject-line generation. Each operation
// fails independently; callers apply their documented fallbacks.
package textgen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

type Generator interface {
	Summarize(title, body string) (string, error)
	Score(title, body string) (int, error)
	Categorize(title, body string) (string, error)
	SubjectLine(titles []string) (string, error)
}

// Categories is the closed label set Categorize must answer from.
var Categories = []string{
	"AI/ML",
	"Startups/Funding",
	"Consumer Tech",
	"Enterprise/Business",
	"Security/Privacy",
	"Developer Tools",
	"Hardware",
}

const (
	summarizeBodyCap  = 2000
	scoreBodyCap      = 1000
	categorizeBodyCap = 800
	subjectTitleCap   = 3
)

func summarizePrompt(title, body string) string {
	return fmt.Sprintf(
		"Summarize this tech article in exactly 2-3 clear sentences for a daily tech newsletter. "+
			"Focus on the key innovation, business impact, and why tech professionals should care. "+
			"Keep it concise and engaging.\n\nTitle: %s\n\nContent: %s",
		title, capText(body, summarizeBodyCap))
}

func scorePrompt(title, body string) string {
	return fmt.Sprintf(
		"Rate this tech article's importance for a daily tech newsletter audience on a scale of 1-10. "+
			"Consider: innovation level, business impact, audience interest, and timeliness. "+
			"Respond with ONLY a single number from 1-10, nothing else.\n\nTitle: %s\n\nContent: %s",
		title, capText(body, scoreBodyCap))
}

func categorizePrompt(title, body string) string {
	return fmt.Sprintf(
		"Categorize this tech article into ONE of these exact categories: %s. "+
			"Respond with ONLY the category name, nothing else.\n\nTitle: %s\n\nContent: %s",
		strings.Join(Categories, ", "), title, capText(body, categorizeBodyCap))
}

func subjectPrompt(titles []string) string {
	if len(titles) > subjectTitleCap {
		titles = titles[:subjectTitleCap]
	}
	return fmt.Sprintf(
		"Create an engaging newsletter subject line (maximum 50 characters) based on these top tech stories: %s. "+
			"Make it compelling for busy tech professionals. "+
			"Use format like 'Daily Tech: [Key Topics]' or 'Tech Brief: [Main Theme]'",
		strings.Join(titles, ", "))
}

// capText truncates to n runes; slicing bytes could split a multibyte
// character and feed the model invalid UTF-8.
func capText(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

var leadingNumber = regexp.MustCompile(`[0-9]+`)

// parseScore extracts the first integer from a model reply and clamps it
// into [1,10]. A reply with no digits is an error; the caller substitutes
// the neutral default.
func parseScore(reply string) (int, error) {
	digits := leadingNumber.FindString(reply)
	if digits == "" {
		return 0, fmt.Errorf("no score in reply %q", reply)
	}
	score, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parsing score from %q: %w", reply, err)
	}
	return clampScore(score), nil
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
