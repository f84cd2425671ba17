package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxContentLength = 5000

// DetailPayload is the readable-content payload persisted for entities whose
// detail source is a plain web page.
type DetailPayload struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Byline    string `json:"byline,omitempty"`
	Excerpt   string `json:"excerpt,omitempty"`
	Content   string `json:"content"`
	WordCount int    `json:"word_count"`
}

// ContentExtractor reduces raw HTML to a readable-content payload using the
// Firefox Reader Mode algorithm. Extraction is site-agnostic; no
// per-platform selectors.
type ContentExtractor struct {
	maxLen int
}

// NewContentExtractor creates an extractor with the default content cap.
func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{maxLen: maxContentLength}
}

// Extract parses the page and returns the payload as JSON.
func (e *ContentExtractor) Extract(htmlBytes []byte, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(htmlBytes), u)
	if err != nil {
		return nil, fmt.Errorf("extract readable content: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)

	payload := DetailPayload{
		URL:       rawURL,
		Title:     article.Title,
		Byline:    article.Byline,
		Excerpt:   article.Excerpt,
		Content:   truncate(text, e.maxLen),
		WordCount: countWords(text),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal detail payload: %w", err)
	}

	return data, nil
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	runes := []rune(s)

	return string(runes[:maxLen])
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
